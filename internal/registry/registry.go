package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/models"
)

// Options carries the registry's collaborators. Storage, events, AI and the
// driver factory are all optional in tests; execution requires Drivers.
type Options struct {
	Config    *common.Config
	Logger    arbor.ILogger
	Storage   interfaces.StorageManager
	Events    interfaces.EventService
	Drivers   interfaces.DriverFactory
	AI        interfaces.AIAutomationService
	Factories map[string]interfaces.StrategyFactory
	Fallback  interfaces.StrategyFactory
}

// StrategyRegistry is the orchestration hub: it holds validated strategy
// definitions, matches jobs to strategies, enforces per-domain rate limits
// and runs executions end to end. Reads are concurrent; writes to any one
// strategy (definition replacement, metrics append) serialize on a
// per-strategy-id lock.
type StrategyRegistry struct {
	config    *common.Config
	logger    arbor.ILogger
	storage   interfaces.StorageManager
	events    interfaces.EventService
	drivers   interfaces.DriverFactory
	ai        interfaces.AIAutomationService
	factories map[string]interfaces.StrategyFactory
	fallback  interfaces.StrategyFactory

	mu          sync.RWMutex
	definitions map[string]*models.StrategyDefinition
	strategyMus map[string]*sync.Mutex
	limiters    map[string]*rate.Limiter

	watcher *Watcher
	cron    *cron.Cron
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry(opts Options) *StrategyRegistry {
	return &StrategyRegistry{
		config:      opts.Config,
		logger:      opts.Logger,
		storage:     opts.Storage,
		events:      opts.Events,
		drivers:     opts.Drivers,
		ai:          opts.AI,
		factories:   opts.Factories,
		fallback:    opts.Fallback,
		definitions: make(map[string]*models.StrategyDefinition),
		strategyMus: make(map[string]*sync.Mutex),
		limiters:    make(map[string]*rate.Limiter),
	}
}

// LoadAll loads and registers every definition in the configured directory.
// Invalid definitions are rejected with error logging and never partially
// registered; the rest load normally.
func (r *StrategyRegistry) LoadAll(ctx context.Context) error {
	defs, err := LoadDefinitionsFromDir(r.config.Strategies.DefinitionsDir, r.logger)
	if err != nil {
		return err
	}
	registered := 0
	for _, def := range defs {
		if err := r.Register(ctx, def); err != nil {
			r.logger.Error().Str("strategy", def.ID).Err(err).Msg("Strategy rejected")
			continue
		}
		registered++
	}
	r.logger.Info().Int("registered", registered).Msg("Strategy registry loaded")
	return nil
}

// Register validates and installs one definition, replacing any previous
// version under the same ID. Rolling metrics survive replacement: a reloaded
// definition inherits the window of the one it replaces, or the persisted
// window after a restart.
func (r *StrategyRegistry) Register(ctx context.Context, def *models.StrategyDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	lock := r.strategyLock(def.ID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	if def.Metrics == nil {
		if prev, ok := r.definitions[def.ID]; ok && prev.Metrics != nil {
			def.Metrics = prev.Metrics
		} else {
			def.Metrics = r.storedMetrics(ctx, def.ID)
		}
	}
	r.definitions[def.ID] = def
	if _, ok := r.limiters[def.CompanyDomain]; !ok {
		r.limiters[def.CompanyDomain] = newLimiter(def.RateLimit)
	}
	r.mu.Unlock()

	if r.storage != nil {
		if err := r.storage.StrategyStorage().SaveStrategy(ctx, def); err != nil {
			r.logger.Warn().Str("strategy", def.ID).Err(err).Msg("Failed to persist strategy")
		}
	}

	r.publish(ctx, interfaces.EventStrategyLoaded, def.ID, "", def.Version)
	r.logger.Info().
		Str("strategy", def.ID).
		Str("domain", def.CompanyDomain).
		Int("steps", def.Workflow.TotalSteps()).
		Msg("Strategy registered")
	return nil
}

// storedMetrics recovers a persisted metrics window, or starts a fresh one
func (r *StrategyRegistry) storedMetrics(ctx context.Context, id string) *models.StrategyMetrics {
	if r.storage != nil {
		if stored, err := r.storage.StrategyStorage().GetStrategy(ctx, id); err == nil && stored.Metrics != nil {
			return stored.Metrics
		}
	}
	return models.NewStrategyMetrics()
}

// GetStrategy returns a registered definition by ID
func (r *StrategyRegistry) GetStrategy(id string) (*models.StrategyDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[id]
	return def, ok
}

// GetAllStrategies returns all registered definitions sorted by ID
func (r *StrategyRegistry) GetAllStrategies() []*models.StrategyDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*models.StrategyDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// MatchStrategy finds the best strategy for a job posting
func (r *StrategyRegistry) MatchStrategy(ctx context.Context, job *models.JobPosting) *models.StrategyMatchResult {
	match := MatchStrategy(job, r.GetAllStrategies(), r.config.Strategies.DefaultID)
	if match.Matched {
		r.publish(ctx, interfaces.EventStrategyMatched, match.Strategy.ID, job.ID, match.Confidence)
		r.logger.Debug().
			Str("job", job.ID).
			Str("strategy", match.Strategy.ID).
			Float64("confidence", match.Confidence).
			Msg("Strategy matched")
	} else {
		r.logger.Warn().Str("job", job.ID).Str("domain", job.Domain()).Msg("No strategy matched")
	}
	return match
}

// ExecuteStrategy runs one job application end to end: match, rate-limit,
// AI-first execution with transparent fallback to the step executor, metrics
// append and persistence. Workflow failures come back inside the result; the
// returned error is reserved for infrastructure failures (no match, no
// browser).
func (r *StrategyRegistry) ExecuteStrategy(ctx context.Context, job *models.JobPosting, profile *models.UserProfile) (*models.StrategyExecutionResult, error) {
	match := r.MatchStrategy(ctx, job)
	if !match.Matched {
		return nil, fmt.Errorf("no strategy matches job %s (domain %s)", job.ID, job.Domain())
	}
	def := match.Strategy

	if limiter := r.limiter(def.CompanyDomain); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait aborted: %w", err)
		}
	}

	if r.drivers == nil {
		return nil, fmt.Errorf("no driver factory configured")
	}
	driver, err := r.drivers.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser page: %w", err)
	}
	defer driver.Close()

	sctx := &interfaces.StrategyContext{
		Job:         job,
		Driver:      driver,
		UserProfile: profile,
		Definition:  def,
		SessionData: make(map[string]string),
	}

	variant := PickVariant(def)
	r.publish(ctx, interfaces.EventExecutionStarted, def.ID, job.ID, nil)
	start := time.Now()

	result := r.execute(ctx, sctx)
	if result.ExecutionTime == 0 {
		result.ExecutionTime = time.Since(start)
	}

	r.recordMetrics(ctx, def, result)
	if r.storage != nil {
		recordABResult(ctx, r.storage.ABTestStorage(), r.logger, def, variant, job.ID, result)
	}

	if result.CaptchaEncountered {
		r.publish(ctx, interfaces.EventCaptchaDetected, def.ID, job.ID, nil)
	}
	if !result.Success {
		r.publish(ctx, interfaces.EventErrorOccurred, def.ID, job.ID, result.Error)
	}
	r.publish(ctx, interfaces.EventExecutionCompleted, def.ID, job.ID, result.Success)

	r.logger.Info().
		Str("strategy", def.ID).
		Str("job", job.ID).
		Bool("success", result.Success).
		Dur("duration", result.ExecutionTime).
		Msg("Execution finished")
	return result, nil
}

// execute picks the execution path: AI automation first when enabled and not
// opted out, falling back to the traditional step executor on any AI failure.
// The fallback is transparent; callers see one result either way.
func (r *StrategyRegistry) execute(ctx context.Context, sctx *interfaces.StrategyContext) *models.StrategyExecutionResult {
	def := sctx.Definition

	if r.ai != nil && r.ai.Available() && !def.Preferences.DisableAIAutomation {
		result, err := r.ai.Execute(ctx, sctx)
		if err == nil && result != nil && result.Success {
			return result
		}
		r.logger.Warn().
			Str("strategy", def.ID).
			Err(err).
			Msg("AI automation failed, falling back to step executor")
	}

	factory, ok := r.factories[def.ID]
	if !ok {
		factory = r.fallback
	}
	// Fresh instance per run; strategy instances hold per-job state and are
	// never shared across executions.
	strategy := factory(def)
	return strategy.ExecuteMainWorkflow(ctx, sctx)
}

// recordMetrics appends one sample to the strategy's rolling window and
// persists the definition, serialized per strategy ID.
func (r *StrategyRegistry) recordMetrics(ctx context.Context, def *models.StrategyDefinition, result *models.StrategyExecutionResult) {
	lock := r.strategyLock(def.ID)
	lock.Lock()
	defer lock.Unlock()

	if def.Metrics == nil {
		def.Metrics = models.NewStrategyMetrics()
	}
	errorType := ""
	if !result.Success {
		errorType = result.Error
	}
	def.Metrics.Append(models.PerformanceMetric{
		Timestamp:          time.Now(),
		Success:            result.Success,
		ExecutionTime:      result.ExecutionTime,
		ErrorType:          errorType,
		CaptchaEncountered: result.CaptchaEncountered,
	})

	if r.storage != nil {
		if err := r.storage.StrategyStorage().SaveStrategy(ctx, def); err != nil {
			r.logger.Warn().Str("strategy", def.ID).Err(err).Msg("Failed to persist metrics")
		}
	}
	r.publish(ctx, interfaces.EventMetricsUpdated, def.ID, "", def.Metrics.SuccessRate)
}

// StartWatcher begins hot-reloading definition files when enabled
func (r *StrategyRegistry) StartWatcher(ctx context.Context) error {
	if !r.config.Strategies.Watch {
		return nil
	}
	watcher, err := NewWatcher(
		r.config.Strategies.DefinitionsDir,
		r.config.Strategies.WatchDebounceDuration(),
		func(path string) { r.reloadFile(ctx, path) },
		r.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to start strategy watcher: %w", err)
	}
	r.watcher = watcher
	r.watcher.Start(ctx)
	return nil
}

// reloadFile re-registers one changed definition file. A definition that no
// longer validates is rejected and the previous version stays active.
func (r *StrategyRegistry) reloadFile(ctx context.Context, path string) {
	def, err := LoadDefinitionFile(path)
	if err != nil {
		r.logger.Error().Str("file", path).Err(err).Msg("Hot-reload parse failed, keeping previous version")
		return
	}
	if err := r.Register(ctx, def); err != nil {
		r.logger.Error().Str("file", path).Err(err).Msg("Hot-reload validation failed, keeping previous version")
		return
	}
	r.logger.Info().Str("file", path).Str("strategy", def.ID).Msg("Strategy hot-reloaded")
}

// StartMetricsFlush schedules periodic persistence of all metrics windows
func (r *StrategyRegistry) StartMetricsFlush(ctx context.Context) error {
	if r.config.Metrics.FlushSchedule == "" || r.storage == nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(r.config.Metrics.FlushSchedule, func() {
		for _, def := range r.GetAllStrategies() {
			lock := r.strategyLock(def.ID)
			lock.Lock()
			if err := r.storage.StrategyStorage().SaveStrategy(ctx, def); err != nil {
				r.logger.Warn().Str("strategy", def.ID).Err(err).Msg("Metrics flush failed")
			}
			lock.Unlock()
		}
		r.logger.Debug().Msg("Metrics flush completed")
	})
	if err != nil {
		return fmt.Errorf("invalid metrics flush schedule: %w", err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Close stops the watcher and the flush scheduler
func (r *StrategyRegistry) Close() error {
	if r.watcher != nil {
		if err := r.watcher.Stop(); err != nil {
			r.logger.Warn().Err(err).Msg("Watcher stop failed")
		}
	}
	if r.cron != nil {
		r.cron.Stop()
	}
	return nil
}

func (r *StrategyRegistry) strategyLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.strategyMus[id]
	if !ok {
		lock = &sync.Mutex{}
		r.strategyMus[id] = lock
	}
	return lock
}

func (r *StrategyRegistry) limiter(domain string) *rate.Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[domain]
}

func newLimiter(cfg models.RateLimitConfig) *rate.Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)
}

func (r *StrategyRegistry) publish(ctx context.Context, eventType interfaces.EventType, strategyID, jobID string, payload interface{}) {
	if r.events == nil {
		return
	}
	_ = r.events.Publish(ctx, interfaces.Event{
		Type:       eventType,
		StrategyID: strategyID,
		JobID:      jobID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	})
}
