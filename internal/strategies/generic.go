package strategies

import (
	"context"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// GenericStrategy is the fallback for sites with no dedicated strategy. It
// runs the configured workflow as-is, then fills any leftover visible inputs
// field-by-field when the workflow alone filled nothing.
type GenericStrategy struct {
	*BaseStrategy
}

// NewGenericStrategy creates the generic fallback strategy
func NewGenericStrategy(def *models.StrategyDefinition, deps Deps) interfaces.Strategy {
	return &GenericStrategy{BaseStrategy: NewBaseStrategy(def, deps)}
}

func (s *GenericStrategy) ExecuteMainWorkflow(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	result := s.BaseStrategy.ExecuteMainWorkflow(ctx, sctx)
	if !result.Success {
		return result
	}

	// Workflows for unknown sites are often navigation-only; sweep the
	// remaining visible inputs against the mapped profile fields, and fall
	// back to scanning input attributes when no selectors are configured.
	fields := s.MapFormFields(sctx.UserProfile)
	filled := 0
	if len(fields) > 0 {
		filled = s.fillMappedFields(ctx, sctx, fields)
	}
	if filled == 0 {
		filled = s.fillByAttributes(ctx, sctx)
	}
	if filled > 0 {
		s.logger.Debug().Int("filled", filled).Msg("Generic field sweep filled fields")
	}
	return result
}
