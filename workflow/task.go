package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devskyy/runway/types"
)

// TaskStatus is the task lifecycle state.
type TaskStatus string

const (
	// TaskPending means the task has not been launched yet.
	TaskPending TaskStatus = "pending"
	// TaskRunning means the task executor is currently attempting the task.
	TaskRunning TaskStatus = "running"
	// TaskCompleted means the task finished successfully.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed means the task exhausted its retries.
	TaskFailed TaskStatus = "failed"
	// TaskSkipped means the task became unreachable because a dependency
	// failed under a continue-on-failure policy.
	TaskSkipped TaskStatus = "skipped"
	// TaskRolledBack means the task's compensation ran during rollback.
	TaskRolledBack TaskStatus = "rolled_back"
)

// taskTransitions encodes the monotonic task state machine: a task never
// re-enters PENDING after leaving it.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:   {TaskRunning, TaskSkipped},
	TaskRunning:   {TaskCompleted, TaskFailed},
	TaskCompleted: {TaskRolledBack},
}

// Default execution policy applied when a TaskSpec leaves fields zero.
const (
	DefaultRetryCount  = 3
	DefaultRetryDelay  = 5 * time.Second
	DefaultTaskTimeout = 300 * time.Second
)

// TaskSpec describes a task to be added to a workflow.
type TaskSpec struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	// Agent binding
	AgentType   string         `yaml:"agent_type" json:"agent_type"`
	AgentMethod string         `yaml:"agent_method" json:"agent_method"`
	Parameters  map[string]any `yaml:"parameters" json:"parameters"`

	// Dependency edges (names of other tasks in the same spec, resolved to
	// task IDs at workflow creation)
	DependsOn []string `yaml:"depends_on" json:"depends_on"`

	// Execution policy; zero values take engine defaults
	RetryCount   int           `yaml:"retry_count" json:"retry_count"`
	RetryDelay   time.Duration `yaml:"retry_delay" json:"retry_delay"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	AllowFailure bool          `yaml:"allow_failure" json:"allow_failure"`

	// Compensation (Saga pattern); empty method means rollback skips this task
	CompensationMethod     string         `yaml:"compensation_method" json:"compensation_method"`
	CompensationParameters map[string]any `yaml:"compensation_parameters" json:"compensation_parameters"`
}

// Task is a single unit of work bound to one agent capability, with its
// own retry/timeout/compensation policy and lifecycle state. Configuration
// fields are immutable after creation; mutable execution state is guarded
// by an internal mutex because facade status reads race the scheduler.
type Task struct {
	ID          string
	Name        string
	Description string

	AgentType   string
	AgentMethod string
	Parameters  map[string]any

	DependsOn   []string
	RequiredFor []string

	RetryCount   int
	RetryDelay   time.Duration
	Timeout      time.Duration
	AllowFailure bool

	CompensationMethod     string
	CompensationParameters map[string]any

	Metadata map[string]any

	mu        sync.Mutex
	status    TaskStatus
	result    any
	errMsg    string
	startTime time.Time
	endTime   time.Time
	attempts  int
}

// NewTask builds a Task from a spec, generating its ID and applying
// default execution policy to unset fields.
func NewTask(spec TaskSpec) *Task {
	t := &Task{
		ID:                     uuid.NewString(),
		Name:                   spec.Name,
		Description:            spec.Description,
		AgentType:              spec.AgentType,
		AgentMethod:            spec.AgentMethod,
		Parameters:             spec.Parameters,
		DependsOn:              append([]string(nil), spec.DependsOn...),
		RetryCount:             spec.RetryCount,
		RetryDelay:             spec.RetryDelay,
		Timeout:                spec.Timeout,
		AllowFailure:           spec.AllowFailure,
		CompensationMethod:     spec.CompensationMethod,
		CompensationParameters: spec.CompensationParameters,
		status:                 TaskPending,
	}
	if t.Parameters == nil {
		t.Parameters = make(map[string]any)
	}
	if t.RetryCount <= 0 {
		t.RetryCount = DefaultRetryCount
	}
	if t.RetryDelay <= 0 {
		t.RetryDelay = DefaultRetryDelay
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTaskTimeout
	}
	return t
}

// Status returns the current lifecycle state.
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// setStatus applies a state transition, rejecting moves the task state
// machine does not allow.
func (t *Task) setStatus(next TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, allowed := range taskTransitions[t.status] {
		if allowed == next {
			t.status = next
			return nil
		}
	}
	return types.Errorf(types.ErrInvalidTransition,
		"task %s: illegal transition %s -> %s", t.Name, t.status, next)
}

// Result returns the stored result of a completed task.
func (t *Task) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the recorded terminal error message, empty if none.
func (t *Task) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

// Attempts returns how many attempts the executor has made so far.
func (t *Task) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// StartTime returns when the first attempt started, zero if not started.
func (t *Task) StartTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startTime
}

// EndTime returns when the task reached a terminal state, zero if still
// pending or running.
func (t *Task) EndTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endTime
}

// Duration returns wall-clock time between start and end, zero until the
// task terminates.
func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startTime.IsZero() || t.endTime.IsZero() {
		return 0
	}
	return t.endTime.Sub(t.startTime)
}

func (t *Task) begin() {
	t.mu.Lock()
	t.startTime = time.Now()
	t.mu.Unlock()
}

func (t *Task) recordAttempt(n int) {
	t.mu.Lock()
	t.attempts = n
	t.mu.Unlock()
}

func (t *Task) complete(result any) {
	t.mu.Lock()
	t.result = result
	t.endTime = time.Now()
	t.mu.Unlock()
	_ = t.setStatus(TaskCompleted)
}

func (t *Task) fail(errMsg string) {
	t.mu.Lock()
	t.errMsg = errMsg
	t.endTime = time.Now()
	t.mu.Unlock()
	_ = t.setStatus(TaskFailed)
}
