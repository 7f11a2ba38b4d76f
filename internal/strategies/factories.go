package strategies

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/engine"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// Deps bundles the engine components every strategy needs. Built once at
// startup and shared; the components themselves are stateless across
// executions.
type Deps struct {
	Logger   arbor.ILogger
	Executor *engine.StepExecutor
	Retry    *engine.RetryController
	Captcha  *engine.CaptchaResolver
	Events   interfaces.EventService // optional, nil disables step events
}

// Factories returns the startup-time registration table mapping strategy IDs
// to their implementations. Strategy IDs not present here fall back to the
// generic strategy; the table is the complete set of site-specific code paths.
func Factories(deps Deps) map[string]interfaces.StrategyFactory {
	return map[string]interfaces.StrategyFactory{
		"linkedin":   func(def *models.StrategyDefinition) interfaces.Strategy { return NewLinkedInStrategy(def, deps) },
		"greenhouse": func(def *models.StrategyDefinition) interfaces.Strategy { return NewGreenhouseStrategy(def, deps) },
		"generic":    func(def *models.StrategyDefinition) interfaces.Strategy { return NewGenericStrategy(def, deps) },
	}
}

// FallbackFactory returns the generic strategy factory used for IDs with no
// dedicated entry in the table.
func FallbackFactory(deps Deps) interfaces.StrategyFactory {
	return func(def *models.StrategyDefinition) interfaces.Strategy {
		return NewGenericStrategy(def, deps)
	}
}
