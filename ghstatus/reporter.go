package ghstatus

import (
	"context"
	"fmt"

	"github.com/google/go-github/v58/github"
	"github.com/rs/zerolog"

	"github.com/imranansari/codedeploy-task/config"
)

// GitHub truncates deployment status descriptions at 140 characters.
const maxDescriptionLength = 140

// Reporter tracks a single deployment run as a GitHub deployment record
// on the configured commit. A nil Reporter is valid and does nothing.
type Reporter struct {
	factory      *ClientFactory
	cfg          config.GitHubConfig
	logger       zerolog.Logger
	deploymentID int64
}

// NewReporter creates a reporter for the configured repository and commit.
func NewReporter(factory *ClientFactory, cfg config.GitHubConfig, logger zerolog.Logger) *Reporter {
	return &Reporter{
		factory: factory,
		cfg:     cfg,
		logger:  logger,
	}
}

// Started creates the deployment record and marks it in_progress.
func (r *Reporter) Started(ctx context.Context) {
	if r == nil {
		return
	}

	client, err := r.factory.ClientForOwner(ctx, r.cfg.Owner)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create GitHub client, skipping deployment status")
		return
	}

	deployment, _, err := client.Repositories.CreateDeployment(ctx, r.cfg.Owner, r.cfg.Repo, &github.DeploymentRequest{
		Ref:                   github.String(r.cfg.CommitSHA),
		Task:                  github.String("deploy"),
		Environment:           github.String(r.cfg.Environment),
		Description:           github.String(truncateDescription("CodeDeploy deployment started")),
		AutoMerge:             github.Bool(false),
		RequiredContexts:      &[]string{},
		ProductionEnvironment: github.Bool(r.cfg.Environment == "production"),
	})
	if err != nil {
		r.logger.Warn().Err(err).
			Str("owner", r.cfg.Owner).
			Str("repo", r.cfg.Repo).
			Str("sha", r.cfg.CommitSHA).
			Msg("Failed to create GitHub deployment, continuing without status")
		return
	}

	r.deploymentID = deployment.GetID()
	r.logger.Info().
		Int64("github_deployment_id", r.deploymentID).
		Str("environment", r.cfg.Environment).
		Str("sha", r.cfg.CommitSHA).
		Msg("Created GitHub deployment")

	r.setStatus(ctx, client, "in_progress", "Deployment in progress")
}

// Finished marks the deployment record success or failure, naming the
// CodeDeploy deployment when one was created.
func (r *Reporter) Finished(ctx context.Context, succeeded bool, deploymentID string) {
	if r == nil || r.deploymentID == 0 {
		return
	}

	client, err := r.factory.ClientForOwner(ctx, r.cfg.Owner)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create GitHub client, skipping deployment status")
		return
	}

	state := "failure"
	outcome := "failed"
	if succeeded {
		state = "success"
		outcome = "succeeded"
	}
	description := fmt.Sprintf("CodeDeploy deployment %s", outcome)
	if deploymentID != "" {
		description = fmt.Sprintf("CodeDeploy deployment %s %s", deploymentID, outcome)
	}

	r.setStatus(ctx, client, state, description)
}

// setStatus posts one deployment status update.
func (r *Reporter) setStatus(ctx context.Context, client *github.Client, state, description string) {
	_, _, err := client.Repositories.CreateDeploymentStatus(ctx, r.cfg.Owner, r.cfg.Repo, r.deploymentID, &github.DeploymentStatusRequest{
		State:        github.String(state),
		Description:  github.String(truncateDescription(description)),
		AutoInactive: github.Bool(true),
	})
	if err != nil {
		r.logger.Warn().Err(err).
			Int64("github_deployment_id", r.deploymentID).
			Str("state", state).
			Msg("Failed to update GitHub deployment status")
		return
	}

	r.logger.Info().
		Int64("github_deployment_id", r.deploymentID).
		Str("state", state).
		Msg("Updated GitHub deployment status")
}

// truncateDescription keeps descriptions inside the API limit.
func truncateDescription(description string) string {
	if len(description) <= maxDescriptionLength {
		return description
	}
	return description[:maxDescriptionLength-3] + "..."
}
