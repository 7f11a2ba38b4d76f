package models

import "time"

// MetricsWindowSize caps the rolling per-strategy performance window.
// Oldest entries are evicted first once the cap is reached.
const MetricsWindowSize = 100

// PerformanceMetric is one execution's datapoint in a strategy's rolling window
type PerformanceMetric struct {
	Timestamp          time.Time     `json:"timestamp" toml:"timestamp" yaml:"timestamp"`
	Success            bool          `json:"success" toml:"success" yaml:"success"`
	ExecutionTime      time.Duration `json:"execution_time" toml:"execution_time" yaml:"execution_time"`
	ErrorType          string        `json:"error_type,omitempty" toml:"error_type" yaml:"error_type"`
	CaptchaEncountered bool          `json:"captcha_encountered" toml:"captcha_encountered" yaml:"captcha_encountered"`
}

// StrategyMetrics holds the rolling window plus stats derived from it.
// SuccessRate, AverageExecutionTime and LastUpdated are recomputed on every
// append - they are never stored independently of the window.
type StrategyMetrics struct {
	Window               []PerformanceMetric `json:"window" toml:"window" yaml:"window"`
	TotalExecutions      int64               `json:"total_executions" toml:"total_executions" yaml:"total_executions"`
	SuccessRate          float64             `json:"success_rate" toml:"success_rate" yaml:"success_rate"`
	AverageExecutionTime time.Duration       `json:"average_execution_time" toml:"average_execution_time" yaml:"average_execution_time"`
	LastUpdated          time.Time           `json:"last_updated" toml:"last_updated" yaml:"last_updated"`
}

// NewStrategyMetrics returns an empty metrics window
func NewStrategyMetrics() *StrategyMetrics {
	return &StrategyMetrics{
		Window: make([]PerformanceMetric, 0, MetricsWindowSize),
	}
}

// Append adds a metric to the rolling window, evicting the oldest entry when
// the window is full, then recomputes the derived stats.
func (m *StrategyMetrics) Append(metric PerformanceMetric) {
	if len(m.Window) >= MetricsWindowSize {
		m.Window = m.Window[len(m.Window)-MetricsWindowSize+1:]
	}
	m.Window = append(m.Window, metric)
	m.TotalExecutions++
	m.recompute()
}

func (m *StrategyMetrics) recompute() {
	if len(m.Window) == 0 {
		m.SuccessRate = 0
		m.AverageExecutionTime = 0
		return
	}
	successes := 0
	var total time.Duration
	for _, metric := range m.Window {
		if metric.Success {
			successes++
		}
		total += metric.ExecutionTime
	}
	m.SuccessRate = float64(successes) / float64(len(m.Window))
	m.AverageExecutionTime = total / time.Duration(len(m.Window))
	m.LastUpdated = time.Now().UTC()
}
