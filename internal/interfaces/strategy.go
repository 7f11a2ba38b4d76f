package interfaces

import (
	"context"

	"github.com/ternarybob/applyr/internal/models"
)

// StrategyContext is the per-execution input bundle. Constructed fresh for
// each execution and never reused across jobs.
type StrategyContext struct {
	Job         *models.JobPosting
	Driver      PageDriver
	UserProfile *models.UserProfile
	Definition  *models.StrategyDefinition
	SessionData map[string]string
}

// Strategy is a company/site-specific automation implementation. Instances
// hold per-job state (current step, screenshots, logs) and must not be shared
// across concurrent executions - the registry creates a fresh instance per run.
type Strategy interface {
	// ExecuteMainWorkflow orchestrates the site's multi-step flow. It never
	// returns an error for workflow failures; those are folded into the
	// result's Error field.
	ExecuteMainWorkflow(ctx context.Context, sctx *StrategyContext) *models.StrategyExecutionResult

	// MapFormFields projects the generic user profile onto the site's
	// expected field vocabulary.
	MapFormFields(profile *models.UserProfile) map[string]string

	// HandleCompanyCaptcha runs site-specific challenge detection and
	// resolution. Returns true when the challenge is gone.
	HandleCompanyCaptcha(ctx context.Context, sctx *StrategyContext) (bool, error)

	// ExtractConfirmation scrapes the post-submission page for proof of
	// success.
	ExtractConfirmation(ctx context.Context, sctx *StrategyContext) (*models.ConfirmationResult, error)
}

// StrategyFactory creates a fresh strategy instance for one execution.
// Factories are registered in a startup-time table keyed by strategy ID,
// replacing any dynamic code loading.
type StrategyFactory func(def *models.StrategyDefinition) Strategy

// AIAutomationService attempts an LLM-driven execution of a job application.
// On failure the registry falls back to the traditional step-executor path;
// the fallback is transparent to callers.
type AIAutomationService interface {
	Execute(ctx context.Context, sctx *StrategyContext) (*models.StrategyExecutionResult, error)
	Available() bool
}
