package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Outputs receives named values produced by a run, for consumption by the
// calling pipeline.
type Outputs interface {
	Set(name, value string) error
}

type discardOutputs struct{}

func (discardOutputs) Set(string, string) error { return nil }

// Config wires an Orchestrator.
type Config struct {
	Store   ObjectStore
	Service DeploymentService

	// Outputs is optional; nil discards published values.
	Outputs Outputs

	Logger zerolog.Logger
}

// Orchestrator runs one deployment end to end: precondition checks,
// revision packaging and upload, submission, and the completion wait.
// Stages run strictly in that order and the first failure aborts the run.
type Orchestrator struct {
	store   ObjectStore
	service DeploymentService
	outputs Outputs
	logger  zerolog.Logger

	// pollInterval overrides the waiter cadence; zero means PollInterval.
	// Tests shrink it, production code leaves it alone.
	pollInterval time.Duration
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	outputs := cfg.Outputs
	if outputs == nil {
		outputs = discardOutputs{}
	}
	return &Orchestrator{
		store:   cfg.Store,
		service: cfg.Service,
		outputs: outputs,
		logger:  cfg.Logger,
	}
}

// Execute performs the deployment described by req and returns the
// deployment ID once the service reports a successful terminal state.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	o.logger.Info().
		Str("application", req.Application).
		Str("deployment_group", req.DeploymentGroup).
		Str("revision_source", string(req.RevisionSource)).
		Str("bucket", req.Bucket).
		Msg("Starting deployment")

	if err := o.checkPreconditions(ctx, req); err != nil {
		return "", err
	}

	revision, err := o.resolveRevision(ctx, req)
	if err != nil {
		return "", err
	}

	o.logger.Info().
		Str("bucket", revision.Bucket).
		Str("key", revision.Key).
		Str("bundle_type", revision.BundleType).
		Msg("Submitting deployment")

	deploymentID, err := o.service.CreateDeployment(ctx, Submission{
		Application:                   req.Application,
		DeploymentGroup:               req.DeploymentGroup,
		Revision:                      revision,
		FileExistsBehavior:            req.FileExistsBehavior,
		IgnoreApplicationStopFailures: req.IgnoreApplicationStopFailures,
		UpdateOutdatedInstancesOnly:   req.UpdateOutdatedInstancesOnly,
		Description:                   req.Description,
	})
	if err != nil {
		return "", fmt.Errorf("%w: application %q: %w", ErrDeploymentSubmissionFailed, req.Application, err)
	}

	if deploymentID == "" {
		// The service accepted the submission but returned no identifier.
		// Carried over from the original behavior: not treated as fatal.
		o.logger.Warn().
			Str("application", req.Application).
			Msg("Service returned an empty deployment ID")
	} else {
		o.logger.Info().
			Str("deployment_id", deploymentID).
			Msg("Deployment submitted")
	}

	maxAttempts := MaxAttempts(req.TimeoutMinutes)
	o.logger.Info().
		Str("deployment_id", deploymentID).
		Int("timeout_minutes", req.TimeoutMinutes).
		Int("max_attempts", maxAttempts).
		Msg("Waiting for deployment to complete")

	waiter := &Waiter{Service: o.service, Interval: o.pollInterval, Logger: o.logger}
	if err := waiter.Wait(ctx, deploymentID, maxAttempts); err != nil {
		return "", fmt.Errorf("%w: application %q: %w", ErrDeploymentWaitFailed, req.Application, err)
	}

	if req.OutputVariable != "" {
		if err := o.outputs.Set(req.OutputVariable, deploymentID); err != nil {
			// The deployment itself succeeded; a broken output sink is not
			// worth failing the run over.
			o.logger.Error().Err(err).
				Str("output_variable", req.OutputVariable).
				Msg("Failed to publish deployment ID")
		}
	}

	o.logger.Info().
		Str("application", req.Application).
		Str("deployment_id", deploymentID).
		Dur("duration", time.Since(start)).
		Msg("Deployment succeeded")

	return deploymentID, nil
}

// checkPreconditions verifies the application, the deployment group and,
// for object-store revisions, the revision object itself. Each probe
// failure maps to its own named error so the operator knows which
// resource is missing without reading logs.
func (o *Orchestrator) checkPreconditions(ctx context.Context, req Request) error {
	o.logger.Info().Msg("Checking deployment preconditions")

	ok, err := o.service.ApplicationExists(ctx, req.Application)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrApplicationNotFound, req.Application, err)
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrApplicationNotFound, req.Application)
	}

	ok, err = o.service.DeploymentGroupExists(ctx, req.Application, req.DeploymentGroup)
	if err != nil {
		return fmt.Errorf("%w: %q in application %q: %w", ErrDeploymentGroupNotFound, req.DeploymentGroup, req.Application, err)
	}
	if !ok {
		return fmt.Errorf("%w: %q in application %q", ErrDeploymentGroupNotFound, req.DeploymentGroup, req.Application)
	}

	if req.RevisionSource == RevisionObjectStore {
		ok, err = o.store.Head(ctx, req.Bucket, req.BundleKey)
		if err != nil {
			return fmt.Errorf("%w: s3://%s/%s: %w", ErrRevisionObjectNotFound, req.Bucket, req.BundleKey, err)
		}
		if !ok {
			return fmt.Errorf("%w: s3://%s/%s", ErrRevisionObjectNotFound, req.Bucket, req.BundleKey)
		}
	}

	return nil
}
