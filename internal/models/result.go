package models

import "time"

// ExecutionMetrics captures phase timings of one execution
type ExecutionMetrics struct {
	TimeToFirstInteraction time.Duration `json:"time_to_first_interaction"`
	FormFillTime           time.Duration `json:"form_fill_time"`
	UploadTime             time.Duration `json:"upload_time"`
	SubmissionTime         time.Duration `json:"submission_time"`
}

// StrategyExecutionResult is the per-execution output. Failures never throw
// past the top-level Execute boundary - callers always receive a result,
// success or failure, with accumulated logs and screenshots either way.
type StrategyExecutionResult struct {
	Success            bool             `json:"success"`
	Error              string           `json:"error,omitempty"`
	ExecutionTime      time.Duration    `json:"execution_time"`
	StepsCompleted     int              `json:"steps_completed"`
	TotalSteps         int              `json:"total_steps"`
	CaptchaEncountered bool             `json:"captcha_encountered"`
	Screenshots        []string         `json:"screenshots,omitempty"`
	Logs               []string         `json:"logs,omitempty"`
	Metrics            ExecutionMetrics `json:"metrics"`
	ApplicationID      string           `json:"application_id,omitempty"`
	ConfirmationID     string           `json:"confirmation_id,omitempty"`
}

// ConfirmationResult is what post-submission scraping yields
type ConfirmationResult struct {
	Confirmed      bool   `json:"confirmed"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	ApplicationID  string `json:"application_id,omitempty"`
}

// StrategyMatchResult reports how the registry matched a job to a strategy
type StrategyMatchResult struct {
	Matched    bool                  `json:"matched"`
	Strategy   *StrategyDefinition   `json:"strategy,omitempty"`
	Confidence float64               `json:"confidence"`
	Alternates []*StrategyDefinition `json:"alternates,omitempty"`
}
