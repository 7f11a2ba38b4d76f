package interfaces

import (
	"context"
	"time"
)

// EventType represents different lifecycle events in the system
type EventType string

const (
	EventStrategyLoaded       EventType = "strategy_loaded"
	EventStrategyMatched      EventType = "strategy_matched"
	EventExecutionStarted     EventType = "execution_started"
	EventStepCompleted        EventType = "step_completed"
	EventCaptchaDetected      EventType = "captcha_detected"
	EventErrorOccurred        EventType = "error_occurred"
	EventExecutionCompleted   EventType = "execution_completed"
	EventMetricsUpdated       EventType = "metrics_updated"
	EventAIAutomationStarted  EventType = "ai_automation_started"
	EventAIAutomationProgress EventType = "ai_automation_progress"
	EventAIAutomationError    EventType = "ai_automation_error"
	EventAIAutomationComplete EventType = "ai_automation_complete"
)

// Event is one lifecycle notification. StrategyID/JobID and Timestamp are
// always populated by the publisher.
type Event struct {
	Type       EventType
	StrategyID string
	JobID      string
	Timestamp  time.Time
	Payload    interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Unsubscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
