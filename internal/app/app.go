package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/driver"
	"github.com/ternarybob/applyr/internal/engine"
	"github.com/ternarybob/applyr/internal/interfaces"
	"github.com/ternarybob/applyr/internal/registry"
	"github.com/ternarybob/applyr/internal/services/automation"
	"github.com/ternarybob/applyr/internal/services/events"
	"github.com/ternarybob/applyr/internal/services/vision"
	"github.com/ternarybob/applyr/internal/storage/badger"
	"github.com/ternarybob/applyr/internal/strategies"
)

// App owns the service graph. Construction order matters: storage and events
// first, then the browser pool and engine, then the registry that ties them
// together. Close releases in reverse order.
type App struct {
	Config   *common.Config
	Logger   arbor.ILogger
	Storage  interfaces.StorageManager
	Events   interfaces.EventService
	Drivers  interfaces.DriverFactory
	Vision   interfaces.VisionService
	AI       interfaces.AIAutomationService
	Registry *registry.StrategyRegistry
}

// NewApp wires the full service graph from configuration
func NewApp(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	eventService := events.NewService(logger)
	if err := events.SubscribeLoggerToAllEvents(eventService, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to subscribe event logger")
	}

	visionService, err := vision.NewVisionService(ctx, &config.Vision, logger)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to initialize vision service: %w", err)
	}

	pool, err := driver.NewPool(&config.Browser, logger)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to initialize browser pool: %w", err)
	}

	executor := engine.NewStepExecutor(logger, config.Browser.ElementTimeoutDuration(), config.Screenshots.Dir)
	retry := engine.NewRetryController(logger, executor)
	captcha := engine.NewCaptchaResolver(logger, visionService)

	deps := strategies.Deps{
		Logger:   logger,
		Executor: executor,
		Retry:    retry,
		Captcha:  captcha,
		Events:   eventService,
	}

	ai := automation.NewService(&config.Automation, &config.Vision.Claude, eventService, logger)

	reg := registry.NewStrategyRegistry(registry.Options{
		Config:    config,
		Logger:    logger,
		Storage:   storage,
		Events:    eventService,
		Drivers:   pool,
		AI:        ai,
		Factories: strategies.Factories(deps),
		Fallback:  strategies.FallbackFactory(deps),
	})

	if err := reg.LoadAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("Strategy directory load failed, registry starts empty")
	}
	if err := reg.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("Strategy watcher unavailable")
	}
	if err := reg.StartMetricsFlush(ctx); err != nil {
		logger.Warn().Err(err).Msg("Metrics flush scheduler unavailable")
	}

	return &App{
		Config:   config,
		Logger:   logger,
		Storage:  storage,
		Events:   eventService,
		Drivers:  pool,
		Vision:   visionService,
		AI:       ai,
		Registry: reg,
	}, nil
}

// Close shuts the service graph down in reverse construction order
func (a *App) Close() {
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Registry close failed")
		}
	}
	if a.Drivers != nil {
		if err := a.Drivers.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Browser pool close failed")
		}
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service close failed")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
	// Give async event handlers a beat to drain before process exit.
	time.Sleep(100 * time.Millisecond)
}
