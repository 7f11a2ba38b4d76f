package events

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/applyr/internal/common"
	"github.com/ternarybob/applyr/internal/interfaces"
)

func TestSubscribeAndPublishSync(t *testing.T) {
	service := NewService(common.GetLogger())

	var mu sync.Mutex
	var received []interfaces.Event
	handler := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		return nil
	}
	require.NoError(t, service.Subscribe(interfaces.EventExecutionStarted, handler))

	err := service.PublishSync(context.Background(), interfaces.Event{
		Type:       interfaces.EventExecutionStarted,
		StrategyID: "acme",
		JobID:      "job-1",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "acme", received[0].StrategyID)
	assert.Equal(t, "job-1", received[0].JobID)
}

func TestPublishSyncOnlyReachesMatchingType(t *testing.T) {
	service := NewService(common.GetLogger())

	calls := 0
	require.NoError(t, service.Subscribe(interfaces.EventStrategyLoaded, func(ctx context.Context, event interfaces.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventExecutionCompleted}))
	assert.Equal(t, 0, calls)
}

func TestPublishSyncReportsHandlerErrors(t *testing.T) {
	service := NewService(common.GetLogger())

	require.NoError(t, service.Subscribe(interfaces.EventErrorOccurred, func(ctx context.Context, event interfaces.Event) error {
		return fmt.Errorf("handler blew up")
	}))

	err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventErrorOccurred})
	assert.Error(t, err)
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	service := NewService(common.GetLogger())
	assert.Error(t, service.Subscribe(interfaces.EventStrategyLoaded, nil))
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	service := NewService(common.GetLogger())

	calls := 0
	handler := func(ctx context.Context, event interfaces.Event) error {
		calls++
		return nil
	}
	require.NoError(t, service.Subscribe(interfaces.EventMetricsUpdated, handler))
	require.NoError(t, service.Unsubscribe(interfaces.EventMetricsUpdated, handler))

	require.NoError(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventMetricsUpdated}))
	assert.Equal(t, 0, calls)
}

func TestUnsubscribeUnknownHandlerErrors(t *testing.T) {
	service := NewService(common.GetLogger())
	err := service.Unsubscribe(interfaces.EventMetricsUpdated, func(ctx context.Context, event interfaces.Event) error {
		return nil
	})
	assert.Error(t, err)
}

func TestCloseDropsSubscribers(t *testing.T) {
	service := NewService(common.GetLogger())

	calls := 0
	require.NoError(t, service.Subscribe(interfaces.EventCaptchaDetected, func(ctx context.Context, event interfaces.Event) error {
		calls++
		return nil
	}))
	require.NoError(t, service.Close())

	require.NoError(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventCaptchaDetected}))
	assert.Equal(t, 0, calls)
}
