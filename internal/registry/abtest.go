package registry

import (
	"context"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// PickVariant selects an A/B arm weighted by traffic share. Returns nil when
// the definition has no enabled test, leaving the base configuration in force.
func PickVariant(def *models.StrategyDefinition) *models.ABVariant {
	if def.ABTesting == nil || !def.ABTesting.Enabled || len(def.ABTesting.Variants) == 0 {
		return nil
	}

	total := 0.0
	for _, v := range def.ABTesting.Variants {
		total += v.TrafficShare
	}
	if total <= 0 {
		return nil
	}

	roll := rand.Float64() * total
	acc := 0.0
	for i := range def.ABTesting.Variants {
		acc += def.ABTesting.Variants[i].TrafficShare
		if roll < acc {
			return &def.ABTesting.Variants[i]
		}
	}
	return &def.ABTesting.Variants[len(def.ABTesting.Variants)-1]
}

// recordABResult persists one A/B arm outcome. Persistence failures are
// logged, not propagated; losing a sample must not fail the execution.
func recordABResult(ctx context.Context, storage interfaces.ABTestStorage, logger arbor.ILogger,
	def *models.StrategyDefinition, variant *models.ABVariant, jobID string, result *models.StrategyExecutionResult) {
	if variant == nil || storage == nil {
		return
	}
	err := storage.SaveResult(ctx, &interfaces.ABTestResult{
		StrategyID:    def.ID,
		Variant:       variant.Name,
		JobID:         jobID,
		Success:       result.Success,
		ExecutionTime: result.ExecutionTime,
		Timestamp:     time.Now(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("strategy", def.ID).Str("variant", variant.Name).Msg("Failed to record A/B result")
	}
}
