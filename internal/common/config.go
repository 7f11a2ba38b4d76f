package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Strategies  StrategiesConfig  `toml:"strategies"`
	Browser     BrowserConfig     `toml:"browser"`
	Vision      VisionConfig      `toml:"vision"`
	Automation  AutomationConfig  `toml:"automation"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Screenshots ScreenshotsConfig `toml:"screenshots"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// StrategiesConfig controls how strategy definitions are loaded
type StrategiesConfig struct {
	DefinitionsDir string `toml:"definitions_dir"` // Directory containing strategy files (TOML/YAML)
	Watch          bool   `toml:"watch"`           // Hot-reload definitions on file changes
	WatchDebounce  string `toml:"watch_debounce"`  // Per-company debounce window, e.g. "500ms"
	DefaultID      string `toml:"default_id"`      // Fallback strategy when no domain matches
}

// BrowserConfig tunes the chromedp driver pool
type BrowserConfig struct {
	PoolSize       int    `toml:"pool_size"`
	Headless       bool   `toml:"headless"`
	UserAgent      string `toml:"user_agent"`
	NavTimeout     string `toml:"nav_timeout"`     // e.g. "30s"
	ElementTimeout string `toml:"element_timeout"` // per-selector visibility window, e.g. "5s"
	UserDataDir    string `toml:"user_data_dir"`   // Optional browser profile directory
}

// VisionConfig selects and configures the captcha vision provider
type VisionConfig struct {
	Provider string       `toml:"provider"` // "claude", "gemini" or "" (disabled)
	Claude   ClaudeConfig `toml:"claude"`
	Gemini   GeminiConfig `toml:"gemini"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// AutomationConfig controls the AI-driven execution path
type AutomationConfig struct {
	AIEnabled  bool `toml:"ai_enabled"`  // Attempt LLM-planned execution before the step executor
	MaxActions int  `toml:"max_actions"` // Bounded action budget per AI run
}

// MetricsConfig controls periodic persistence of rolling metrics windows
type MetricsConfig struct {
	FlushSchedule string `toml:"flush_schedule"` // Cron expression, e.g. "*/5 * * * *"
}

type ScreenshotsConfig struct {
	Dir string `toml:"dir"` // Screenshot output directory
}

// DefaultConfig returns the baseline configuration
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/applyr"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Strategies: StrategiesConfig{
			DefinitionsDir: "./strategies",
			Watch:          false,
			WatchDebounce:  "500ms",
			DefaultID:      "generic",
		},
		Browser: BrowserConfig{
			PoolSize:       2,
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavTimeout:     "30s",
			ElementTimeout: "5s",
		},
		Vision: VisionConfig{
			Claude: ClaudeConfig{Model: "claude-sonnet-4-20250514", Timeout: "60s", MaxTokens: 1024},
			Gemini: GeminiConfig{Model: "gemini-2.5-flash", Timeout: "60s"},
		},
		Automation: AutomationConfig{
			AIEnabled:  false,
			MaxActions: 40,
		},
		Metrics: MetricsConfig{
			FlushSchedule: "*/5 * * * *",
		},
		Screenshots: ScreenshotsConfig{Dir: "./screenshots"},
	}
}

// LoadFromFiles loads configuration with layered precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies APPLYR_* environment variables on top of the
// file-based configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("APPLYR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("APPLYR_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("APPLYR_STRATEGIES_DIR"); v != "" {
		config.Strategies.DefinitionsDir = v
	}
	if v := os.Getenv("APPLYR_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = b
		}
	}
	if v := os.Getenv("APPLYR_VISION_PROVIDER"); v != "" {
		config.Vision.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Vision.Claude.APIKey == "" {
		config.Vision.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.Vision.Gemini.APIKey == "" {
		config.Vision.Gemini.APIKey = v
	}
	if v := os.Getenv("APPLYR_AI_AUTOMATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Automation.AIEnabled = b
		}
	}
}

// Validate checks cross-field configuration constraints
func (c *Config) Validate() error {
	if c.Browser.PoolSize <= 0 {
		return fmt.Errorf("browser.pool_size must be greater than 0, got %d", c.Browser.PoolSize)
	}
	if _, err := time.ParseDuration(c.Browser.NavTimeout); err != nil {
		return fmt.Errorf("invalid browser.nav_timeout %q: %w", c.Browser.NavTimeout, err)
	}
	if _, err := time.ParseDuration(c.Browser.ElementTimeout); err != nil {
		return fmt.Errorf("invalid browser.element_timeout %q: %w", c.Browser.ElementTimeout, err)
	}
	if _, err := time.ParseDuration(c.Strategies.WatchDebounce); err != nil {
		return fmt.Errorf("invalid strategies.watch_debounce %q: %w", c.Strategies.WatchDebounce, err)
	}
	if c.Metrics.FlushSchedule != "" {
		if _, err := cron.ParseStandard(c.Metrics.FlushSchedule); err != nil {
			return fmt.Errorf("invalid metrics.flush_schedule %q: %w", c.Metrics.FlushSchedule, err)
		}
	}
	switch c.Vision.Provider {
	case "", "claude", "gemini":
	default:
		return fmt.Errorf("invalid vision.provider %q (must be claude, gemini or empty)", c.Vision.Provider)
	}
	return nil
}

// NavTimeoutDuration returns the parsed navigation timeout
func (c *BrowserConfig) NavTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.NavTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ElementTimeoutDuration returns the parsed per-selector visibility window
func (c *BrowserConfig) ElementTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ElementTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// WatchDebounceDuration returns the parsed hot-reload debounce window
func (c *StrategiesConfig) WatchDebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}
