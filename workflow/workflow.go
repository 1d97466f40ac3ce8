package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devskyy/runway/types"
)

// WorkflowStatus is the workflow lifecycle state.
type WorkflowStatus string

const (
	// StatusPending means the workflow is created but not yet executing.
	StatusPending WorkflowStatus = "pending"
	// StatusRunning means the scheduler loop is driving the workflow.
	StatusRunning WorkflowStatus = "running"
	// StatusCompleted means every reachable task completed.
	StatusCompleted WorkflowStatus = "completed"
	// StatusFailed means the workflow aborted and rollback was disabled or
	// has not run.
	StatusFailed WorkflowStatus = "failed"
	// StatusCancelled means the workflow was cancelled before completion.
	StatusCancelled WorkflowStatus = "cancelled"
	// StatusPaused is reachable only through the manual Pause extension
	// point; the execution loop never auto-enters it.
	StatusPaused WorkflowStatus = "paused"
	// StatusRolledBack means the workflow failed and its completed tasks
	// were compensated.
	StatusRolledBack WorkflowStatus = "rolled_back"
)

var workflowTransitions = map[WorkflowStatus][]WorkflowStatus{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled, StatusPaused},
	StatusPaused:  {StatusRunning, StatusCancelled},
	StatusFailed:  {StatusRolledBack},
}

// WorkflowType identifies a workflow template, or CUSTOM for ad hoc specs.
type WorkflowType string

const (
	TypeFashionBrandLaunch WorkflowType = "fashion_brand_launch"
	TypeProductLaunch      WorkflowType = "product_launch"
	TypeMarketingCampaign  WorkflowType = "marketing_campaign"
	TypeInventorySync      WorkflowType = "inventory_sync"
	TypeContentGeneration  WorkflowType = "content_generation"
	TypeWebsiteBuild       WorkflowType = "website_build"
	TypeCustom             WorkflowType = "custom"
)

// DefaultMaxParallelTasks bounds concurrent task execution when a spec
// does not set its own cap.
const DefaultMaxParallelTasks = 5

// Workflow is a DAG of Tasks with workflow-level execution policy and
// aggregate progress state. Mutable state is guarded by a mutex because
// facade status reads race the scheduler goroutine that owns execution.
type Workflow struct {
	ID          string
	Name        string
	Description string
	Type        WorkflowType

	// Execution policy
	MaxParallelTasks  int
	EnableRollback    bool
	ContinueOnFailure bool

	// TaskOrder is the topologically sorted task ID sequence, computed
	// once at creation.
	TaskOrder []string

	CreatedBy string
	Tags      []string
	Metadata  map[string]any

	mu        sync.RWMutex
	status    WorkflowStatus
	tasks     map[string]*Task
	taskIDs   []string // insertion order, the topo sorter's tie-break
	current   map[string]struct{}
	completed map[string]struct{}
	failed    map[string]struct{}
	skipped   map[string]struct{}
	results   map[string]any
	errors    map[string]string
	startTime time.Time
	endTime   time.Time
	events    []Event
}

// NewWorkflow creates an empty workflow with the given name and type.
func NewWorkflow(name string, wfType WorkflowType) *Workflow {
	return &Workflow{
		ID:               uuid.NewString(),
		Name:             name,
		Type:             wfType,
		MaxParallelTasks: DefaultMaxParallelTasks,
		EnableRollback:   true,
		status:           StatusPending,
		tasks:            make(map[string]*Task),
		current:          make(map[string]struct{}),
		completed:        make(map[string]struct{}),
		failed:           make(map[string]struct{}),
		skipped:          make(map[string]struct{}),
		results:          make(map[string]any),
		errors:           make(map[string]string),
	}
}

// AddTask registers a task with the workflow. Dependency edges reference
// task IDs; the topological sort at creation validates them.
func (w *Workflow) AddTask(t *Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.tasks[t.ID]; exists {
		return
	}
	w.tasks[t.ID] = t
	w.taskIDs = append(w.taskIDs, t.ID)
}

// Task returns the task with the given ID.
func (w *Workflow) Task(id string) (*Task, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.tasks[id]
	return t, ok
}

// TaskCount returns the number of registered tasks.
func (w *Workflow) TaskCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.tasks)
}

// Status returns the current lifecycle state.
func (w *Workflow) Status() WorkflowStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// setStatus applies a state transition, rejecting moves the workflow
// state machine does not allow.
func (w *Workflow) setStatus(next WorkflowStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, allowed := range workflowTransitions[w.status] {
		if allowed == next {
			w.status = next
			return nil
		}
	}
	return types.Errorf(types.ErrInvalidTransition,
		"workflow %s: illegal transition %s -> %s", w.Name, w.status, next)
}

// Pause moves a running workflow to PAUSED. This is a documented manual
// extension point: the scheduler loop as built does not consult it.
func (w *Workflow) Pause() error { return w.setStatus(StatusPaused) }

// Resume moves a paused workflow back to RUNNING.
func (w *Workflow) Resume() error { return w.setStatus(StatusRunning) }

// Cancel moves a pending, running, or paused workflow to CANCELLED.
func (w *Workflow) Cancel() error { return w.setStatus(StatusCancelled) }

// StartTime returns when execution began, zero if not started.
func (w *Workflow) StartTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.startTime
}

// EndTime returns when execution finished, zero if still in progress.
func (w *Workflow) EndTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.endTime
}

// Duration returns wall-clock execution time, zero until the workflow
// terminates.
func (w *Workflow) Duration() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.startTime.IsZero() || w.endTime.IsZero() {
		return 0
	}
	return w.endTime.Sub(w.startTime)
}

// Results returns a copy of the aggregated task results keyed by task ID.
func (w *Workflow) Results() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]any, len(w.results))
	for k, v := range w.results {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the recorded task errors keyed by task ID.
func (w *Workflow) Errors() map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// Events returns a copy of the append-only event log.
func (w *Workflow) Events() []Event {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Event(nil), w.events...)
}

// CompletedCount returns the number of completed tasks.
func (w *Workflow) CompletedCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.completed)
}

// FailedCount returns the number of failed tasks.
func (w *Workflow) FailedCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.failed)
}

// SkippedCount returns the number of tasks skipped as unreachable.
func (w *Workflow) SkippedCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.skipped)
}

// InFlightCount returns the number of tasks currently executing.
func (w *Workflow) InFlightCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.current)
}

// IsCompleted reports whether the given task has completed.
func (w *Workflow) IsCompleted(taskID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.completed[taskID]
	return ok
}

func (w *Workflow) markStarted() {
	w.mu.Lock()
	w.startTime = time.Now()
	w.mu.Unlock()
}

func (w *Workflow) markEnded() {
	w.mu.Lock()
	w.endTime = time.Now()
	w.mu.Unlock()
}

func (w *Workflow) addCurrent(taskID string) {
	w.mu.Lock()
	w.current[taskID] = struct{}{}
	w.mu.Unlock()
}

func (w *Workflow) reapCompleted(t *Task) {
	w.mu.Lock()
	delete(w.current, t.ID)
	w.completed[t.ID] = struct{}{}
	w.results[t.ID] = t.Result()
	w.mu.Unlock()
}

func (w *Workflow) reapFailed(t *Task) {
	w.mu.Lock()
	delete(w.current, t.ID)
	w.failed[t.ID] = struct{}{}
	w.errors[t.ID] = t.Err()
	w.mu.Unlock()
}

func (w *Workflow) markSkipped(taskID string) {
	w.mu.Lock()
	w.skipped[taskID] = struct{}{}
	w.mu.Unlock()
}

// completedInReverseOrder returns the completed task IDs ordered by
// reverse TaskOrder, the order rollback undoes them in.
func (w *Workflow) completedInReverseOrder() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.completed))
	for i := len(w.TaskOrder) - 1; i >= 0; i-- {
		id := w.TaskOrder[i]
		if _, ok := w.completed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (w *Workflow) appendEvent(evt Event) {
	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}
