package workflow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType identifies a workflow lifecycle event.
type EventType string

const (
	EventWorkflowStarted    EventType = "workflow_started"
	EventWorkflowCompleted  EventType = "workflow_completed"
	EventWorkflowFailed     EventType = "workflow_failed"
	EventWorkflowRolledBack EventType = "workflow_rolled_back"
	EventTaskCompleted      EventType = "task_completed"
	EventTaskFailed         EventType = "task_failed"
)

// Event is a structured record appended to a workflow's event log and
// fanned out to subscribers.
type Event struct {
	WorkflowID string         `json:"workflow_id"`
	Type       EventType      `json:"event_type"`
	Data       map[string]any `json:"data"`
	Timestamp  time.Time      `json:"timestamp"`
}

// EventHandler observes emitted events. Handlers run synchronously as part
// of emission; a handler error or panic is logged and swallowed, never
// propagated to the emitting task or workflow.
type EventHandler func(ctx context.Context, evt Event) error

// eventBus stores subscribers per event type and delivers events to them.
type eventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
	logger      *zap.Logger
}

func newEventBus(logger *zap.Logger) *eventBus {
	return &eventBus{
		subscribers: make(map[EventType][]EventHandler),
		logger:      logger.With(zap.String("component", "event_bus")),
	}
}

func (b *eventBus) subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// emit appends the event to the workflow's log and notifies subscribers.
func (b *eventBus) emit(ctx context.Context, w *Workflow, eventType EventType, data map[string]any) {
	evt := Event{
		WorkflowID: w.ID,
		Type:       eventType,
		Data:       data,
		Timestamp:  time.Now(),
	}
	w.appendEvent(evt)

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.deliver(ctx, handler, evt)
	}

	b.logger.Debug("event emitted",
		zap.String("workflow_id", w.ID),
		zap.String("event_type", string(eventType)),
	)
}

func (b *eventBus) deliver(ctx context.Context, handler EventHandler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				zap.String("event_type", string(evt.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	if err := handler(ctx, evt); err != nil {
		b.logger.Error("event subscriber error",
			zap.String("event_type", string(evt.Type)),
			zap.Error(err),
		)
	}
}
