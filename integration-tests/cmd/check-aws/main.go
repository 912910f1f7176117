package main

import (
	"context"
	"flag"
	"log"

	"github.com/imranansari/codedeploy-task/awsclient"
	"github.com/imranansari/codedeploy-task/config"
	"github.com/imranansari/codedeploy-task/logging"
)

// Preflight probe against live AWS credentials: checks that the
// configured application, deployment group and bucket are visible before
// running a real deployment.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flag.StringVar(&cfg.Deploy.Application, "app", cfg.Deploy.Application, "CodeDeploy application name")
	flag.StringVar(&cfg.Deploy.DeploymentGroup, "group", cfg.Deploy.DeploymentGroup, "CodeDeploy deployment group name")
	flag.StringVar(&cfg.Deploy.Bucket, "bucket", cfg.Deploy.Bucket, "S3 bucket to probe")
	flag.StringVar(&cfg.Deploy.BundleKey, "key", cfg.Deploy.BundleKey, "Optional object key to probe")
	flag.Parse()

	if cfg.Deploy.Application == "" || cfg.Deploy.DeploymentGroup == "" {
		log.Fatal("Application and deployment group are required")
	}

	logging.InitLogger("warn", "console")

	clients, err := awsclient.New(cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to create AWS clients: %v", err)
	}

	store := awsclient.NewBundleStore(clients.S3, logging.AWSLogger())
	service := awsclient.NewDeployService(clients.CodeDeploy, logging.AWSLogger())

	ctx := context.Background()

	log.Printf("Checking application %s...", cfg.Deploy.Application)
	exists, err := service.ApplicationExists(ctx, cfg.Deploy.Application)
	if err != nil {
		log.Fatalf("Failed to check application: %v", err)
	}
	if !exists {
		log.Fatalf("✗ Application %s not found", cfg.Deploy.Application)
	}
	log.Println("✓ Application found")

	log.Printf("Checking deployment group %s...", cfg.Deploy.DeploymentGroup)
	exists, err = service.DeploymentGroupExists(ctx, cfg.Deploy.Application, cfg.Deploy.DeploymentGroup)
	if err != nil {
		log.Fatalf("Failed to check deployment group: %v", err)
	}
	if !exists {
		log.Fatalf("✗ Deployment group %s not found in %s", cfg.Deploy.DeploymentGroup, cfg.Deploy.Application)
	}
	log.Println("✓ Deployment group found")

	if cfg.Deploy.Bucket != "" && cfg.Deploy.BundleKey != "" {
		log.Printf("Checking s3://%s/%s...", cfg.Deploy.Bucket, cfg.Deploy.BundleKey)
		found, err := store.Head(ctx, cfg.Deploy.Bucket, cfg.Deploy.BundleKey)
		if err != nil {
			log.Fatalf("Failed to check object: %v", err)
		}
		if !found {
			log.Fatalf("✗ Object not found")
		}
		log.Println("✓ Object found")
	}

	log.Println("=== All checks passed ===")
}
