package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventBus_DeliversToMatchingSubscribersOnly(t *testing.T) {
	bus := newEventBus(zap.NewNop())
	w := NewWorkflow("wf", TypeCustom)

	var completed, failed int
	bus.subscribe(EventWorkflowCompleted, func(ctx context.Context, evt Event) error {
		completed++
		return nil
	})
	bus.subscribe(EventWorkflowFailed, func(ctx context.Context, evt Event) error {
		failed++
		return nil
	})

	bus.emit(context.Background(), w, EventWorkflowCompleted, map[string]any{"k": "v"})

	assert.Equal(t, 1, completed)
	assert.Zero(t, failed)

	events := w.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventWorkflowCompleted, events[0].Type)
	assert.Equal(t, w.ID, events[0].WorkflowID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEventBus_SubscriberErrorAndPanicAreContained(t *testing.T) {
	bus := newEventBus(zap.NewNop())
	w := NewWorkflow("wf", TypeCustom)

	var delivered int
	bus.subscribe(EventTaskCompleted, func(ctx context.Context, evt Event) error {
		return errors.New("observer broke")
	})
	bus.subscribe(EventTaskCompleted, func(ctx context.Context, evt Event) error {
		panic("observer exploded")
	})
	bus.subscribe(EventTaskCompleted, func(ctx context.Context, evt Event) error {
		delivered++
		return nil
	})

	assert.NotPanics(t, func() {
		bus.emit(context.Background(), w, EventTaskCompleted, nil)
	})
	assert.Equal(t, 1, delivered, "later subscribers still receive the event")
}

func TestEventBus_EventLogAccumulates(t *testing.T) {
	bus := newEventBus(zap.NewNop())
	w := NewWorkflow("wf", TypeCustom)

	bus.emit(context.Background(), w, EventWorkflowStarted, nil)
	bus.emit(context.Background(), w, EventTaskCompleted, nil)
	bus.emit(context.Background(), w, EventWorkflowCompleted, nil)

	events := w.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventWorkflowStarted, events[0].Type)
	assert.Equal(t, EventWorkflowCompleted, events[2].Type)
}
