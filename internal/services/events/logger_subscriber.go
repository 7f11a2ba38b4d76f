package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if event.StrategyID != "" {
			logEvent = logEvent.Str("strategy", event.StrategyID)
		}
		if event.JobID != "" {
			logEvent = logEvent.Str("job", event.JobID)
		}

		logEvent.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventStrategyLoaded,
		interfaces.EventStrategyMatched,
		interfaces.EventExecutionStarted,
		interfaces.EventStepCompleted,
		interfaces.EventCaptchaDetected,
		interfaces.EventErrorOccurred,
		interfaces.EventExecutionCompleted,
		interfaces.EventMetricsUpdated,
		interfaces.EventAIAutomationStarted,
		interfaces.EventAIAutomationProgress,
		interfaces.EventAIAutomationError,
		interfaces.EventAIAutomationComplete,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")
	return nil
}
