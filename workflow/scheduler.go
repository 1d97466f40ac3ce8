package workflow

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/devskyy/runway/types"
)

// scheduler drives a workflow's tasks from PENDING to a terminal state,
// respecting dependency edges and the parallelism cap. A single goroutine
// (the caller of run) owns all mutable workflow state; launched tasks
// report their terminal state over a completion channel, so the loop
// blocks on real completions instead of polling.
type scheduler struct {
	executor *taskExecutor
	bus      *eventBus
	logger   *zap.Logger

	// onTaskExecuted is invoked once per successfully completed task.
	onTaskExecuted func()
}

func newScheduler(executor *taskExecutor, bus *eventBus, logger *zap.Logger) *scheduler {
	return &scheduler{
		executor: executor,
		bus:      bus,
		logger:   logger.With(zap.String("component", "scheduler")),
	}
}

// run executes the workflow's task graph. It returns nil when every
// reachable task completed, and the abort error when a terminal task
// failure (with AllowFailure and ContinueOnFailure both false) stopped the
// workflow. Already-launched tasks always run to completion before run
// returns; there is no mid-flight cancellation.
func (s *scheduler) run(ctx context.Context, w *Workflow) error {
	pending := make(map[string]struct{}, len(w.TaskOrder))
	for _, id := range w.TaskOrder {
		pending[id] = struct{}{}
	}

	sem := semaphore.NewWeighted(int64(w.MaxParallelTasks))
	done := make(chan string)
	inFlight := 0
	var abortErr error

	for len(pending) > 0 || inFlight > 0 {
		if abortErr == nil {
			inFlight += s.launchReady(ctx, w, pending, sem, done)
		}

		if inFlight == 0 {
			if len(pending) > 0 && abortErr == nil {
				// Nothing ready, nothing running, tasks remain: their
				// dependency chains failed under a continue-on-failure
				// policy. Mark them skipped rather than spinning.
				s.skipUnreachable(w, pending)
			}
			break
		}

		id := <-done
		inFlight--
		if err := s.reap(ctx, w, id); err != nil && abortErr == nil {
			abortErr = err
			s.logger.Warn("workflow aborting, waiting for in-flight tasks",
				zap.String("workflow_id", w.ID),
				zap.Int("in_flight", inFlight),
			)
		}
	}

	return abortErr
}

// launchReady starts every ready task the parallelism cap admits, in
// TaskOrder, and returns how many were launched.
func (s *scheduler) launchReady(ctx context.Context, w *Workflow, pending map[string]struct{}, sem *semaphore.Weighted, done chan<- string) int {
	launched := 0
	for _, id := range w.TaskOrder {
		if _, isPending := pending[id]; !isPending {
			continue
		}
		task, _ := w.Task(id)
		if !s.dependenciesMet(w, task) {
			continue
		}
		if !sem.TryAcquire(1) {
			break
		}

		delete(pending, id)
		w.addCurrent(id)
		launched++

		go func(t *Task) {
			defer sem.Release(1)
			s.executor.run(ctx, t)
			done <- t.ID
		}(task)
	}
	return launched
}

func (s *scheduler) dependenciesMet(w *Workflow, t *Task) bool {
	for _, dep := range t.DependsOn {
		if !w.IsCompleted(dep) {
			return false
		}
	}
	return true
}

// reap records a terminal task state and emits the matching event. It
// returns a non-nil abort error when the failure must stop the workflow.
func (s *scheduler) reap(ctx context.Context, w *Workflow, taskID string) error {
	t, ok := w.Task(taskID)
	if !ok {
		return nil
	}

	switch t.Status() {
	case TaskCompleted:
		w.reapCompleted(t)
		if s.onTaskExecuted != nil {
			s.onTaskExecuted()
		}
		s.bus.emit(ctx, w, EventTaskCompleted, map[string]any{
			"task_id":   t.ID,
			"task_name": t.Name,
		})

	case TaskFailed:
		w.reapFailed(t)
		s.bus.emit(ctx, w, EventTaskFailed, map[string]any{
			"task_id":   t.ID,
			"task_name": t.Name,
			"error":     t.Err(),
		})
		if !t.AllowFailure && !w.ContinueOnFailure {
			return types.Errorf(types.ErrTaskFailed, "task %s failed: %s", t.Name, t.Err())
		}
	}
	return nil
}

func (s *scheduler) skipUnreachable(w *Workflow, pending map[string]struct{}) {
	for id := range pending {
		t, ok := w.Task(id)
		if !ok {
			continue
		}
		if err := t.setStatus(TaskSkipped); err == nil {
			w.markSkipped(id)
			s.logger.Warn("task unreachable, skipping",
				zap.String("workflow_id", w.ID),
				zap.String("task", t.Name),
			)
		}
		delete(pending, id)
	}
}
