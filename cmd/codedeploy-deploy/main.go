package main

import (
	"context"
	"flag"

	"github.com/google/uuid"

	"github.com/imranansari/codedeploy-task/awsclient"
	"github.com/imranansari/codedeploy-task/config"
	"github.com/imranansari/codedeploy-task/deploy"
	"github.com/imranansari/codedeploy-task/ghstatus"
	"github.com/imranansari/codedeploy-task/logging"
	"github.com/imranansari/codedeploy-task/pipeline"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Flags override the environment for ad-hoc runs
	flag.StringVar(&cfg.Deploy.Application, "app", cfg.Deploy.Application, "CodeDeploy application name")
	flag.StringVar(&cfg.Deploy.DeploymentGroup, "group", cfg.Deploy.DeploymentGroup, "CodeDeploy deployment group name")
	flag.StringVar(&cfg.Deploy.RevisionSource, "source", cfg.Deploy.RevisionSource, "Revision source: workspace or s3")
	flag.StringVar(&cfg.Deploy.BundlePath, "bundle-path", cfg.Deploy.BundlePath, "Directory or archive to deploy (workspace source)")
	flag.StringVar(&cfg.Deploy.Bucket, "bucket", cfg.Deploy.Bucket, "S3 bucket holding revision bundles")
	flag.StringVar(&cfg.Deploy.BundleKey, "key", cfg.Deploy.BundleKey, "Object key of an existing bundle (s3 source)")
	flag.IntVar(&cfg.Deploy.TimeoutMinutes, "timeout", cfg.Deploy.TimeoutMinutes, "Minutes to wait for the deployment to complete")
	flag.Parse()

	// Initialize logger
	logging.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	runID := uuid.NewString()
	logger := logging.DeployLogger(runID)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Info().
		Str("application", cfg.Deploy.Application).
		Str("deployment_group", cfg.Deploy.DeploymentGroup).
		Str("revision_source", cfg.Deploy.RevisionSource).
		Str("bucket", cfg.Deploy.Bucket).
		Str("region", cfg.AWS.Region).
		Bool("github_status", cfg.GitHub.StatusEnabled()).
		Msg("Starting CodeDeploy task")

	// Create AWS clients
	clients, err := awsclient.New(cfg.AWS)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create AWS clients")
	}

	store := awsclient.NewBundleStore(clients.S3, logging.AWSLogger())
	service := awsclient.NewDeployService(clients.CodeDeploy, logging.AWSLogger())

	var outputs deploy.Outputs
	if cfg.Pipeline.OutputFile != "" {
		outputs = pipeline.NewFileOutputs(cfg.Pipeline.OutputFile)
	}

	// Optional GitHub deployment-status mirror
	var reporter *ghstatus.Reporter
	if cfg.GitHub.StatusEnabled() {
		factory := ghstatus.NewClientFactory(cfg.GitHub, cfg.Secrets.GitHubPrivateKey, logging.GitHubLogger())
		reporter = ghstatus.NewReporter(factory, cfg.GitHub, logging.GitHubLogger())
	}

	orchestrator := deploy.New(deploy.Config{
		Store:   store,
		Service: service,
		Outputs: outputs,
		Logger:  logger,
	})

	ctx := context.Background()

	reporter.Started(ctx)

	deploymentID, err := orchestrator.Execute(ctx, deploy.Request{
		Application:                   cfg.Deploy.Application,
		DeploymentGroup:               cfg.Deploy.DeploymentGroup,
		RevisionSource:                deploy.RevisionSource(cfg.Deploy.RevisionSource),
		BundlePath:                    cfg.Deploy.BundlePath,
		Bucket:                        cfg.Deploy.Bucket,
		BundleKey:                     cfg.Deploy.BundleKey,
		BundlePrefix:                  cfg.Deploy.BundlePrefix,
		ArchiveACL:                    cfg.Deploy.ArchiveACL,
		FileExistsBehavior:            cfg.Deploy.FileExistsBehavior,
		IgnoreApplicationStopFailures: cfg.Deploy.IgnoreApplicationStopFailures,
		UpdateOutdatedInstancesOnly:   cfg.Deploy.UpdateOutdatedInstancesOnly,
		Description:                   cfg.Deploy.Description,
		OutputVariable:                cfg.Deploy.OutputVariable,
		TimeoutMinutes:                cfg.Deploy.TimeoutMinutes,
	})

	reporter.Finished(ctx, err == nil, deploymentID)

	if err != nil {
		logger.Fatal().Err(err).Str("deployment_id", deploymentID).Msg("Deployment failed")
	}

	logger.Info().Str("deployment_id", deploymentID).Msg("Deployment complete")
}
