package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devskyy/runway/internal/metrics"
	"github.com/devskyy/runway/types"
)

// taskExecutor runs a single task against its bound agent capability,
// enforcing a per-attempt timeout and a retry loop with exponential
// backoff. It mutates the task in place and never reports an error to the
// scheduler: a terminal failure is observed via the task's status, which
// lets the scheduler keep driving siblings that did not depend on it.
type taskExecutor struct {
	registry  *agentRegistry
	logger    *zap.Logger
	collector *metrics.Collector
	tracer    trace.Tracer
}

func newTaskExecutor(registry *agentRegistry, logger *zap.Logger, collector *metrics.Collector, tracer trace.Tracer) *taskExecutor {
	return &taskExecutor{
		registry:  registry,
		logger:    logger.With(zap.String("component", "task_executor")),
		collector: collector,
		tracer:    tracer,
	}
}

// run drives a task to a terminal state. The backoff before attempt k+1 is
// RetryDelay * 2^(k-1).
func (x *taskExecutor) run(ctx context.Context, t *Task) {
	if err := t.setStatus(TaskRunning); err != nil {
		x.logger.Error("task not startable", zap.String("task", t.Name), zap.Error(err))
		return
	}
	t.begin()

	ctx, span := x.tracer.Start(ctx, "workflow.task",
		trace.WithAttributes(
			attribute.String("task.id", t.ID),
			attribute.String("task.name", t.Name),
			attribute.String("agent.type", t.AgentType),
			attribute.String("agent.method", t.AgentMethod),
		))
	defer span.End()

	x.logger.Info("executing task",
		zap.String("task", t.Name),
		zap.String("agent_type", t.AgentType),
		zap.String("agent_method", t.AgentMethod),
	)

	for attempt := 1; attempt <= t.RetryCount; attempt++ {
		t.recordAttempt(attempt)

		result, err := x.invoke(ctx, t)
		if err == nil {
			t.complete(result)
			x.collector.RecordTask(t.AgentType, "completed", t.Duration())
			span.SetAttributes(attribute.Int("task.attempts", attempt))
			x.logger.Info("task completed",
				zap.String("task", t.Name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", t.RetryCount),
			)
			return
		}

		x.logger.Warn("task attempt failed",
			zap.String("task", t.Name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", t.RetryCount),
			zap.Error(err),
		)

		if attempt < t.RetryCount {
			delay := t.RetryDelay * (1 << (attempt - 1))
			x.logger.Debug("retrying task",
				zap.String("task", t.Name),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				t.fail(ctx.Err().Error())
				x.collector.RecordTask(t.AgentType, "failed", t.Duration())
				span.SetStatus(codes.Error, ctx.Err().Error())
				return
			}
			continue
		}

		t.fail(err.Error())
		x.collector.RecordTask(t.AgentType, "failed", t.Duration())
		span.SetStatus(codes.Error, err.Error())
		x.logger.Error("task failed after all attempts",
			zap.String("task", t.Name),
			zap.Int("attempts", t.RetryCount),
		)
	}
}

// invoke resolves and calls the bound capability under the task's timeout.
// The capability runs in its own goroutine so a collaborator that ignores
// its context still cannot hold the attempt past the deadline.
func (x *taskExecutor) invoke(ctx context.Context, t *Task) (any, error) {
	fn, err := x.registry.resolve(t.AgentType, t.AgentMethod)
	if err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("capability panicked: %v", r)}
			}
		}()
		result, err := fn(attemptCtx, t.Parameters)
		ch <- outcome{result: result, err: err}
	}()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-attemptCtx.Done():
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, types.Errorf(types.ErrTimeout, "task timeout after %gs", t.Timeout.Seconds())
		}
		return nil, attemptCtx.Err()
	}
}
