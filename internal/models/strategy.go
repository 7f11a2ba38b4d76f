package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// SelectorBundle groups the CSS selectors a strategy relies on, by concern.
// These are configuration data, not engine logic - a company changing its
// markup means editing the strategy definition file, not the code.
type SelectorBundle struct {
	Login        []string          `json:"login,omitempty" toml:"login" yaml:"login"`
	Application  []string          `json:"application,omitempty" toml:"application" yaml:"application"`
	FormFields   map[string]string `json:"form_fields,omitempty" toml:"form_fields" yaml:"form_fields"`
	Confirmation []string          `json:"confirmation,omitempty" toml:"confirmation" yaml:"confirmation"`
	Captcha      []string          `json:"captcha,omitempty" toml:"captcha" yaml:"captcha"`
	Navigation   map[string]string `json:"navigation,omitempty" toml:"navigation" yaml:"navigation"`
}

// CaptchaConfig controls how a strategy deals with challenge pages
type CaptchaConfig struct {
	Enabled        bool          `json:"enabled" toml:"enabled" yaml:"enabled"`
	UseVision      bool          `json:"use_vision" toml:"use_vision" yaml:"use_vision"`
	ManualWaitMin  time.Duration `json:"manual_wait_min" toml:"manual_wait_min" yaml:"manual_wait_min"`
	ManualWaitMax  time.Duration `json:"manual_wait_max" toml:"manual_wait_max" yaml:"manual_wait_max"`
	MaxResolutions int           `json:"max_resolutions" toml:"max_resolutions" yaml:"max_resolutions"`
}

// RateLimitConfig bounds execution frequency against one company domain
type RateLimitConfig struct {
	RequestsPerMinute float64 `json:"requests_per_minute" toml:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int     `json:"burst" toml:"burst" yaml:"burst"`
}

// AntiDetectionConfig tunes the humanized interaction timing
type AntiDetectionConfig struct {
	TypingDelayMin time.Duration `json:"typing_delay_min" toml:"typing_delay_min" yaml:"typing_delay_min"`
	TypingDelayMax time.Duration `json:"typing_delay_max" toml:"typing_delay_max" yaml:"typing_delay_max"`
	SettleDelay    time.Duration `json:"settle_delay" toml:"settle_delay" yaml:"settle_delay"`
	RandomizeMouse bool          `json:"randomize_mouse" toml:"randomize_mouse" yaml:"randomize_mouse"`
}

// ABVariant is one arm of a strategy A/B test
type ABVariant struct {
	Name         string            `json:"name" toml:"name" yaml:"name"`
	TrafficShare float64           `json:"traffic_share" toml:"traffic_share" yaml:"traffic_share"`
	Overrides    map[string]string `json:"overrides,omitempty" toml:"overrides" yaml:"overrides"`
}

// ABTestConfig describes an optional strategy A/B test
type ABTestConfig struct {
	Enabled  bool        `json:"enabled" toml:"enabled" yaml:"enabled"`
	Variants []ABVariant `json:"variants,omitempty" toml:"variants" yaml:"variants"`
}

// StrategyMetadata carries authorship and regional support information
type StrategyMetadata struct {
	Author    string    `json:"author,omitempty" toml:"author" yaml:"author"`
	CreatedAt time.Time `json:"created_at,omitempty" toml:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" toml:"updated_at" yaml:"updated_at"`
	Regions   []string  `json:"regions,omitempty" toml:"regions" yaml:"regions"`
}

// StrategyPreferences let a definition opt out of engine features
type StrategyPreferences struct {
	DisableAIAutomation bool `json:"disable_ai_automation" toml:"disable_ai_automation" yaml:"disable_ai_automation"`
}

// StrategyDefinition is the unit of configuration for one company/site.
// Loaded from a TOML or YAML file at registry startup or on file-watch
// reload, cached to the badger store, and mutated only through its Metrics
// sub-object during execution.
type StrategyDefinition struct {
	ID            string              `json:"id" toml:"id" yaml:"id" validate:"required"`
	Name          string              `json:"name" toml:"name" yaml:"name" validate:"required"`
	CompanyDomain string              `json:"company_domain" toml:"company_domain" yaml:"company_domain" validate:"required"`
	Version       string              `json:"version,omitempty" toml:"version" yaml:"version"`
	Description   string              `json:"description,omitempty" toml:"description" yaml:"description"`
	URLPatterns   []string            `json:"url_patterns,omitempty" toml:"url_patterns" yaml:"url_patterns"`
	Selectors     *SelectorBundle     `json:"selectors" toml:"selectors" yaml:"selectors" validate:"required"`
	Workflow      *AutomationWorkflow `json:"workflow" toml:"workflow" yaml:"workflow" validate:"required"`
	Captcha       CaptchaConfig       `json:"captcha_handling" toml:"captcha_handling" yaml:"captcha_handling"`
	RateLimit     RateLimitConfig     `json:"rate_limit" toml:"rate_limit" yaml:"rate_limit"`
	AntiDetection AntiDetectionConfig `json:"anti_detection" toml:"anti_detection" yaml:"anti_detection"`
	Preferences   StrategyPreferences `json:"preferences" toml:"preferences" yaml:"preferences"`
	Metadata      StrategyMetadata    `json:"metadata" toml:"metadata" yaml:"metadata"`
	Metrics       *StrategyMetrics    `json:"metrics,omitempty" toml:"metrics" yaml:"metrics"`
	ABTesting     *ABTestConfig       `json:"ab_testing,omitempty" toml:"ab_testing" yaml:"ab_testing"`
}

var strategyValidator = validator.New()

// Validate checks structural completeness of a strategy definition.
// A definition failing this gate must never be partially registered.
func (d *StrategyDefinition) Validate() error {
	if err := strategyValidator.Struct(d); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, ve := range verrs {
				fields = append(fields, ve.Field())
			}
			return fmt.Errorf("strategy %q failed structural validation, missing: %s", d.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("strategy %q failed structural validation: %w", d.ID, err)
	}
	if err := d.Workflow.Validate(); err != nil {
		return fmt.Errorf("strategy %q: %w", d.ID, err)
	}
	return nil
}

// CanHandleURL reports whether this strategy's URL patterns cover the given URL.
// An empty pattern list falls back to a company-domain substring check.
func (d *StrategyDefinition) CanHandleURL(url string) bool {
	lower := strings.ToLower(url)
	if len(d.URLPatterns) == 0 {
		return strings.Contains(lower, strings.ToLower(d.CompanyDomain))
	}
	for _, pattern := range d.URLPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
