package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/pkg/channels/gochannel"
	"github.com/askdb/askdb/pkg/events"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestWatermillEventBus_ProgressRoundTrip(t *testing.T) {
	bus := newTestBus(t)

	var (
		mu       sync.Mutex
		received []*events.QueryProgress
	)

	err := bus.Handle(events.QueryProgressEvent, func(_ context.Context, event any) error {
		progress, ok := event.(*events.QueryProgress)
		require.True(t, ok)

		mu.Lock()
		received = append(received, progress)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	sent := events.QueryProgress{
		BaseEvent:          events.NewBaseEvent(events.QueryProgressEvent, "task-1"),
		CurrentStep:        "Generating SQL",
		ProgressPercentage: 40,
		GeneratedSQL:       "SELECT 1;",
		Confidence:         0.85,
	}

	require.NoError(t, bus.Publish(t.Context(), "task-1", sent))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "task-1", received[0].TaskID)
	assert.Equal(t, "Generating SQL", received[0].CurrentStep)
	assert.Equal(t, 40, received[0].ProgressPercentage)
	assert.InDelta(t, 0.85, received[0].Confidence, 0.001)
}

func TestWatermillEventBus_UnhandledTypeIsDropped(t *testing.T) {
	bus := newTestBus(t)

	var (
		mu     sync.Mutex
		errors []*events.QueryError
	)

	err := bus.Handle(events.QueryErrorEvent, func(_ context.Context, event any) error {
		queryError, ok := event.(*events.QueryError)
		require.True(t, ok)

		mu.Lock()
		errors = append(errors, queryError)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	// No handler registered for completed events; must not block the stream.
	require.NoError(t, bus.Publish(t.Context(), "task-1", events.QueryCompleted{
		BaseEvent: events.NewBaseEvent(events.QueryCompletedEvent, "task-1"),
	}))

	require.NoError(t, bus.Publish(t.Context(), "task-1", events.QueryError{
		BaseEvent:    events.NewBaseEvent(events.QueryErrorEvent, "task-1"),
		ErrorMessage: "boom",
		ErrorCode:    "EXECUTION_ERROR",
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(errors) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "boom", errors[0].ErrorMessage)
}
