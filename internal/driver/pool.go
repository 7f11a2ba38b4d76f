package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
)

// Pool manages a set of Chrome browser contexts with round-robin allocation.
// Each workflow execution gets a fresh tab context from one of the pooled
// browsers, so independent jobs can run concurrently while no two actions
// ever share a page.
type Pool struct {
	config           *common.BrowserConfig
	logger           arbor.ILogger
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	currentIndex     int
	closed           bool
}

// NewPool creates and initializes a browser pool
func NewPool(config *common.BrowserConfig, logger arbor.ILogger) (*Pool, error) {
	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("browser pool_size must be greater than 0, got %d", config.PoolSize)
	}
	if config.PoolSize > 8 {
		logger.Warn().
			Int("pool_size", config.PoolSize).
			Msg("Large browser pool size detected - this may consume significant memory")
	}

	p := &Pool{
		config: config,
		logger: logger,
	}

	logger.Info().
		Int("pool_size", config.PoolSize).
		Bool("headless", config.Headless).
		Msg("Initializing browser pool")

	for i := 0; i < config.PoolSize; i++ {
		if err := p.createBrowser(i); err != nil {
			if len(p.browsers) == 0 {
				p.Close()
				return nil, fmt.Errorf("failed to create any browser instances: %w", err)
			}
			logger.Warn().Err(err).Int("browser_index", i).Msg("Failed to create browser instance, continuing with fewer")
		}
	}

	return p, nil
}

func (p *Pool) createBrowser(index int) error {
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), p.allocatorOptions()...)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// Warm up the browser so startup failures surface here, not mid-workflow
	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser %d failed to start: %w", index, err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)

	p.logger.Debug().Int("browser_index", index).Msg("Browser instance ready")
	return nil
}

// allocatorOptions builds the anti-detection Chrome flags. Career sites
// fingerprint headless automation aggressively; these flags keep the
// browser profile close to an interactive session.
func (p *Pool) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(p.config.UserAgent),
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-reading-from-canvas", false),
		chromedp.Flag("enable-webgl", true),
		chromedp.WindowSize(1920, 1080),
	}
	if p.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(p.config.UserDataDir))
	}
	return opts
}

// NewPage allocates a fresh tab context from the pool, round-robin
func (p *Pool) NewPage(ctx context.Context) (interfaces.PageDriver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("browser pool is closed")
	}
	if len(p.browsers) == 0 {
		return nil, fmt.Errorf("browser pool has no instances")
	}

	browserCtx := p.browsers[p.currentIndex]
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	return &Page{
		ctx:        tabCtx,
		cancel:     tabCancel,
		logger:     p.logger,
		navTimeout: p.config.NavTimeoutDuration(),
	}, nil
}

// Close shuts down every browser and allocator in the pool
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil

	p.logger.Debug().Msg("Browser pool closed")
	return nil
}
