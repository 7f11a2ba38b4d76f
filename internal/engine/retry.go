package engine

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// backoffBase is the linear backoff unit between attempts:
// 1000ms * (attemptIndex+1).
const backoffBase = time.Second

// RetryController wraps step execution with bounded retries, backoff,
// fallback actions and required-vs-optional semantics.
type RetryController struct {
	logger   arbor.ILogger
	executor *StepExecutor
	backoff  time.Duration
}

// NewRetryController creates a retry controller around a step executor
func NewRetryController(logger arbor.ILogger, executor *StepExecutor) *RetryController {
	return &RetryController{
		logger:   logger,
		executor: executor,
		backoff:  backoffBase,
	}
}

// WithBackoff overrides the backoff unit. Intended for tests.
func (c *RetryController) WithBackoff(d time.Duration) *RetryController {
	c.backoff = d
	return c
}

// ExecuteStep runs one step through the full retry state machine:
//
//	ATTEMPT -> success -> DONE
//	        -> failure -> RETRY while attempts <= retryCount
//	        -> FALLBACK (each fallback action in order)
//	        -> REQUIRED-FAIL or OPTIONAL-CONTINUE
//
// Returns (true, nil) when the step completed, (false, nil) when an optional
// step was skipped after exhaustion, and (false, *WorkflowFatalError) when a
// required step exhausted everything.
func (c *RetryController) ExecuteStep(ctx context.Context, step *models.WorkflowStep, sctx *interfaces.StrategyContext, trace *Trace) (bool, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= step.RetryCount; attempt++ {
		if attempt > 0 {
			// Linear backoff between attempts, abortable by context.
			if err := sleepCtx(ctx, c.backoff*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
			c.logger.Warn().
				Str("step", step.ID).
				Int("attempt", attempt+1).
				Int("max_attempts", step.RetryCount+1).
				Err(lastErr).
				Msg("Retrying step")
			trace.Logf("retry-warning: step %s attempt %d/%d after error: %v", step.ID, attempt+1, step.RetryCount+1, lastErr)
		}
		attempts++

		_, err := c.executor.ExecuteAction(ctx, step, sctx, trace)
		if err == nil {
			// An action that "executes" but fails criteria validation is a
			// failure, not a silent success.
			err = c.executor.ValidateCriteria(ctx, step.SuccessCriteria, sctx)
		}
		if err == nil {
			trace.Logf("step %s completed", step.ID)
			return true, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	// Primary action exhausted; try each fallback action in order. Fallback
	// errors are expected noise from heterogeneous markup - swallowed and
	// logged, never propagated.
	for i := range step.FallbackActions {
		fallback := &step.FallbackActions[i]
		c.logger.Info().
			Str("step", step.ID).
			Str("fallback", fallback.ID).
			Msg("Trying fallback action")
		if _, err := c.executor.ExecuteAction(ctx, fallback, sctx, trace); err != nil {
			c.logger.Debug().
				Str("step", step.ID).
				Str("fallback", fallback.ID).
				Err(err).
				Msg("Fallback action failed")
			continue
		}
		if err := c.executor.ValidateCriteria(ctx, step.SuccessCriteria, sctx); err == nil {
			trace.Logf("step %s completed via fallback %s", step.ID, fallback.ID)
			return true, nil
		}
	}

	if step.Required {
		return false, &WorkflowFatalError{
			StepID:   step.ID,
			StepName: step.Name,
			Attempts: attempts,
			Cause:    lastErr,
		}
	}

	// Optional steps are skipped, never silently: the skip is visible in
	// both the service log and the execution trace.
	c.logger.Warn().
		Str("step", step.ID).
		Int("attempts", attempts).
		Err(lastErr).
		Msg("Optional step exhausted retries and fallbacks, skipping")
	trace.Logf("step %s skipped (optional) after %d attempts: %v", step.ID, attempts, lastErr)
	return false, nil
}
