package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/imranansari/codedeploy-task/config"
	"github.com/imranansari/codedeploy-task/ghstatus"
	"github.com/imranansari/codedeploy-task/logging"
)

// Exercises the GitHub deployment-status mirror end to end against a real
// repository: creates a deployment record, marks it in progress, then
// closes it out as success or failure.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var fail bool
	flag.StringVar(&cfg.GitHub.Owner, "owner", cfg.GitHub.Owner, "Repository owner")
	flag.StringVar(&cfg.GitHub.Repo, "repo", cfg.GitHub.Repo, "Repository name")
	flag.StringVar(&cfg.GitHub.CommitSHA, "sha", cfg.GitHub.CommitSHA, "Commit SHA to attach the deployment to")
	flag.StringVar(&cfg.GitHub.Environment, "env", cfg.GitHub.Environment, "Deployment environment")
	flag.BoolVar(&fail, "fail", false, "Close the deployment out as a failure")
	flag.Parse()

	if !cfg.GitHub.StatusEnabled() {
		log.Fatal("GITHUB_APP_ID not set")
	}
	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" || cfg.GitHub.CommitSHA == "" {
		log.Fatal("Owner, repo and commit SHA are required")
	}

	logging.InitLogger("debug", "console")
	logger := logging.GitHubLogger()

	factory := ghstatus.NewClientFactory(cfg.GitHub, cfg.Secrets.GitHubPrivateKey, logger)
	reporter := ghstatus.NewReporter(factory, cfg.GitHub, logger)

	ctx := context.Background()

	log.Println("=== Creating deployment record ===")
	reporter.Started(ctx)

	time.Sleep(3 * time.Second)

	log.Println("=== Closing deployment record ===")
	reporter.Finished(ctx, !fail, "d-MANUAL0TEST")

	log.Printf("✓ Done. View at: https://github.com/%s/%s/deployments", cfg.GitHub.Owner, cfg.GitHub.Repo)
}
