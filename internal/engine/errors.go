package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine failure taxonomy
var (
	// ErrElementNotFound means every candidate selector was exhausted without
	// a visible match.
	ErrElementNotFound = errors.New("element not found")

	// ErrStepValidation means the action ran without error but the step's
	// success criteria never appeared. Treated identically to an execution
	// failure for retry purposes.
	ErrStepValidation = errors.New("step success criteria not met")

	// ErrCaptchaUnresolved means a challenge was detected but no resolver
	// path made it disappear. Captchas are escalation points, not silently
	// ignorable.
	ErrCaptchaUnresolved = errors.New("captcha unresolved")
)

// WorkflowFatalError is raised when a required step exhausts all retries and
// fallback actions. It aborts the whole execution; the strategy's top-level
// handler converts it into a failure result.
type WorkflowFatalError struct {
	StepID   string
	StepName string
	Attempts int
	Cause    error
}

func (e *WorkflowFatalError) Error() string {
	return fmt.Sprintf("required step %q (%s) failed after %d attempts: %v", e.StepName, e.StepID, e.Attempts, e.Cause)
}

func (e *WorkflowFatalError) Unwrap() error { return e.Cause }

// NotImplementedError names a strategy feature that is deliberately not
// implemented, such as CUSTOM actions on the base strategy.
type NotImplementedError struct {
	Strategy string
	Feature  string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %s not implemented", e.Strategy, e.Feature)
}
