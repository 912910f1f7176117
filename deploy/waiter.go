package deploy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// PollInterval is the cadence the deployment service expects status
// waiters to poll at. It is a service contract, not a local tuning knob:
// the timeout-to-attempts conversion in MaxAttempts assumes it, so both
// must change together if the service ever revises its waiter cadence.
const PollInterval = 15 * time.Second

// MaxAttempts converts the caller-facing timeout into the attempt bound
// for the poll loop: round(timeoutMinutes * 60 / PollInterval seconds).
// The bound counts attempts, not wall-clock time, so a run with slow
// poll calls can exceed the nominal timeout.
func MaxAttempts(timeoutMinutes int) int {
	return int(math.Round(float64(timeoutMinutes) * 60 / PollInterval.Seconds()))
}

// Waiter polls a deployment until it reaches a terminal state or the
// attempt budget is spent. Fixed interval, no backoff; the attempt count
// is the only budget.
type Waiter struct {
	Service DeploymentService

	// Interval between attempts. Zero means PollInterval; tests shrink it.
	Interval time.Duration

	Logger zerolog.Logger
}

// Wait blocks until the deployment succeeds, fails, a poll call errors,
// or maxAttempts polls have been spent. Only a Succeeded terminal state
// returns nil.
func (w *Waiter) Wait(ctx context.Context, deploymentID string, maxAttempts int) error {
	interval := w.Interval
	if interval <= 0 {
		interval = PollInterval
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := w.Service.Status(ctx, deploymentID)
		if err != nil {
			return fmt.Errorf("poll deployment %s: %w", deploymentID, err)
		}

		w.Logger.Debug().
			Str("deployment_id", deploymentID).
			Str("state", string(status.State)).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("Polled deployment status")

		switch {
		case status.State == StateSucceeded:
			w.Logger.Info().
				Str("deployment_id", deploymentID).
				Int("attempts", attempt).
				Msg("Deployment reached Succeeded")
			return nil
		case status.State.Terminal():
			if status.Message != "" {
				return fmt.Errorf("deployment %s entered state %s: %s", deploymentID, status.State, status.Message)
			}
			return fmt.Errorf("deployment %s entered state %s", deploymentID, status.State)
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}

	return fmt.Errorf("deployment %s not successful after %d attempts", deploymentID, maxAttempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
