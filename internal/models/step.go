package models

import (
	"errors"
	"fmt"
	"time"
)

// ActionType represents the kind of browser action a workflow step performs
type ActionType string

// ActionType constants
const (
	ActionNavigate   ActionType = "navigate"
	ActionClick      ActionType = "click"
	ActionTypeText   ActionType = "type"
	ActionUpload     ActionType = "upload"
	ActionSelect     ActionType = "select"
	ActionWait       ActionType = "wait"
	ActionValidate   ActionType = "validate"
	ActionExtract    ActionType = "extract"
	ActionScreenshot ActionType = "screenshot"
	ActionCustom     ActionType = "custom"
)

// IsValidActionType checks if a given ActionType is one of the valid constants
func IsValidActionType(action ActionType) bool {
	switch action {
	case ActionNavigate, ActionClick, ActionTypeText, ActionUpload, ActionSelect,
		ActionWait, ActionValidate, ActionExtract, ActionScreenshot, ActionCustom:
		return true
	default:
		return false
	}
}

// StepMetadata carries free-form action parameters for a workflow step
type StepMetadata struct {
	URL      string        `json:"url,omitempty" toml:"url" yaml:"url"`
	Text     string        `json:"text,omitempty" toml:"text" yaml:"text"`
	Value    string        `json:"value,omitempty" toml:"value" yaml:"value"`
	Duration time.Duration `json:"duration,omitempty" toml:"duration" yaml:"duration"`
	FilePath string        `json:"file_path,omitempty" toml:"file_path" yaml:"file_path"`
}

// WorkflowStep is one atomic unit of automation. Steps are defined statically
// per strategy and never mutated at runtime.
type WorkflowStep struct {
	ID              string         `json:"id" toml:"id" yaml:"id"`
	Name            string         `json:"name" toml:"name" yaml:"name"`
	Description     string         `json:"description,omitempty" toml:"description" yaml:"description"`
	Action          ActionType     `json:"action" toml:"action" yaml:"action"`
	Selectors       []string       `json:"selectors,omitempty" toml:"selectors" yaml:"selectors"`
	Required        bool           `json:"required" toml:"required" yaml:"required"`
	Timeout         time.Duration  `json:"timeout,omitempty" toml:"timeout" yaml:"timeout"`
	RetryCount      int            `json:"retry_count" toml:"retry_count" yaml:"retry_count"`
	SuccessCriteria []string       `json:"success_criteria,omitempty" toml:"success_criteria" yaml:"success_criteria"`
	FallbackActions []WorkflowStep `json:"fallback_actions,omitempty" toml:"fallback_actions" yaml:"fallback_actions"`
	Metadata        StepMetadata   `json:"metadata,omitempty" toml:"metadata" yaml:"metadata"`
}

// Validate checks the structural invariants of a workflow step
func (s *WorkflowStep) Validate() error {
	if s.ID == "" {
		return errors.New("workflow step ID is required")
	}
	if !IsValidActionType(s.Action) {
		return fmt.Errorf("invalid action type: %s", s.Action)
	}
	if s.RetryCount < 0 {
		return fmt.Errorf("step %s: retry_count must be >= 0, got %d", s.ID, s.RetryCount)
	}
	// WAIT can be duration-only and CUSTOM is strategy-defined; everything
	// else has to point at something on the page.
	if len(s.Selectors) == 0 && s.Action != ActionWait && s.Action != ActionCustom &&
		s.Action != ActionNavigate && s.Action != ActionScreenshot {
		return fmt.Errorf("step %s: at least one selector is required for action %s", s.ID, s.Action)
	}
	return nil
}

// AutomationWorkflow holds the four ordered phases of a company workflow
type AutomationWorkflow struct {
	PreApplication  []WorkflowStep `json:"pre_application,omitempty" toml:"pre_application" yaml:"pre_application"`
	Application     []WorkflowStep `json:"application,omitempty" toml:"application" yaml:"application"`
	PostApplication []WorkflowStep `json:"post_application,omitempty" toml:"post_application" yaml:"post_application"`
	ErrorRecovery   []WorkflowStep `json:"error_recovery,omitempty" toml:"error_recovery" yaml:"error_recovery"`
}

// TotalSteps returns the number of steps across the three main phases.
// Error recovery steps only run on failure and are not counted.
func (w *AutomationWorkflow) TotalSteps() int {
	return len(w.PreApplication) + len(w.Application) + len(w.PostApplication)
}

// Validate checks every step in every phase
func (w *AutomationWorkflow) Validate() error {
	phases := map[string][]WorkflowStep{
		"pre_application":  w.PreApplication,
		"application":      w.Application,
		"post_application": w.PostApplication,
		"error_recovery":   w.ErrorRecovery,
	}
	for name, steps := range phases {
		for i := range steps {
			if err := steps[i].Validate(); err != nil {
				return fmt.Errorf("workflow phase %s: %w", name, err)
			}
		}
	}
	if w.TotalSteps() == 0 {
		return errors.New("workflow must have at least one step")
	}
	return nil
}
