package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func errPanic(r any) error {
	return fmt.Errorf("compensation panicked: %v", r)
}

// compensator walks a failed workflow's completed tasks in reverse
// topological order and invokes each task's compensation capability (Saga
// pattern). The sweep is best-effort: a missing agent, missing
// compensation method, or a compensation error is logged and skipped,
// never aborting the remaining undo steps.
type compensator struct {
	registry *agentRegistry
	bus      *eventBus
	logger   *zap.Logger
}

func newCompensator(registry *agentRegistry, bus *eventBus, logger *zap.Logger) *compensator {
	return &compensator{
		registry: registry,
		bus:      bus,
		logger:   logger.With(zap.String("component", "compensator")),
	}
}

// rollback compensates the workflow's completed tasks, most recently
// completed first. It returns the number of completed tasks processed and
// the IDs of tasks whose compensation failed.
func (c *compensator) rollback(ctx context.Context, w *Workflow) (processed int, failedIDs []string) {
	c.logger.Warn("rolling back workflow",
		zap.String("workflow_id", w.ID),
		zap.String("workflow", w.Name),
	)

	rollbackIDs := w.completedInReverseOrder()
	for _, id := range rollbackIDs {
		t, ok := w.Task(id)
		if !ok {
			continue
		}
		if t.CompensationMethod == "" {
			continue
		}

		fn, err := c.registry.resolve(t.AgentType, t.CompensationMethod)
		if err != nil {
			c.logger.Warn("compensation not resolvable, skipping",
				zap.String("task", t.Name),
				zap.Error(err),
			)
			continue
		}

		params := t.CompensationParameters
		if params == nil {
			params = t.Parameters
		}

		c.logger.Info("rolling back task", zap.String("task", t.Name))
		if _, err := c.invoke(ctx, fn, params); err != nil {
			failedIDs = append(failedIDs, id)
			c.logger.Error("rollback failed for task",
				zap.String("task", t.Name),
				zap.Error(err),
			)
			continue
		}

		_ = t.setStatus(TaskRolledBack)
		c.logger.Info("task rolled back", zap.String("task", t.Name))
	}

	c.bus.emit(ctx, w, EventWorkflowRolledBack, map[string]any{
		"tasks_rolled_back": len(rollbackIDs),
	})
	return len(rollbackIDs), failedIDs
}

// invoke shields the sweep from a panicking compensation capability.
func (c *compensator) invoke(ctx context.Context, fn CapabilityFunc, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic(r)
		}
	}()
	return fn(ctx, params)
}
