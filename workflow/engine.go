package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devskyy/runway/internal/metrics"
	"github.com/devskyy/runway/types"
)

const (
	engineName    = "runway workflow engine"
	engineVersion = "1.0.0"
)

// TemplateFunc builds a fully-populated workflow (tasks and dependency
// edges pre-wired) from a workflow spec. The engine does not interpret
// template-internal structure.
type TemplateFunc func(spec Spec) (*Workflow, error)

// Spec configures workflow creation. Template-based workflows read
// TemplateParams; ad hoc (CUSTOM) workflows read Tasks. Dependency edges
// in TaskSpec reference task names, resolved to generated task IDs here.
type Spec struct {
	Name              string         `yaml:"name" json:"name"`
	Description       string         `yaml:"description" json:"description"`
	MaxParallelTasks  int            `yaml:"max_parallel_tasks" json:"max_parallel_tasks"`
	EnableRollback    *bool          `yaml:"enable_rollback" json:"enable_rollback"`
	ContinueOnFailure bool           `yaml:"continue_on_failure" json:"continue_on_failure"`
	CreatedBy         string         `yaml:"created_by" json:"created_by"`
	Tasks             []TaskSpec     `yaml:"tasks" json:"tasks"`
	TemplateParams    map[string]any `yaml:"template_params" json:"template_params"`
}

// Defaults is the engine-level execution policy applied where specs leave
// fields unset. Zero task-policy fields fall through to the package-level
// task defaults.
type Defaults struct {
	MaxParallelTasks int
	EnableRollback   bool
	RetryCount       int
	RetryDelay       time.Duration
	TaskTimeout      time.Duration
}

// Summary is the structured result of a workflow execution. Expected
// failure modes are reported here rather than as errors.
type Summary struct {
	Success            bool           `json:"success"`
	WorkflowID         string         `json:"workflow_id"`
	Status             WorkflowStatus `json:"status"`
	Duration           time.Duration  `json:"duration"`
	TasksCompleted     int            `json:"tasks_completed"`
	TasksFailed        int            `json:"tasks_failed"`
	TasksSkipped       int            `json:"tasks_skipped"`
	Results            map[string]any `json:"results,omitempty"`
	Error              string         `json:"error,omitempty"`
	RolledBack         bool           `json:"rolled_back"`
	CompensationFailed []string       `json:"compensation_failed,omitempty"`
}

// Progress is a read-only projection of a workflow's task counters.
type Progress struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	FailedTasks    int     `json:"failed_tasks"`
	SkippedTasks   int     `json:"skipped_tasks"`
	CurrentTasks   int     `json:"current_tasks"`
	Percentage     float64 `json:"percentage"`
}

// StatusReport is the read-only projection returned by WorkflowStatus.
type StatusReport struct {
	WorkflowID string            `json:"workflow_id"`
	Name       string            `json:"name"`
	Status     WorkflowStatus    `json:"status"`
	Progress   Progress          `json:"progress"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Duration   time.Duration     `json:"duration"`
	Results    map[string]any    `json:"results"`
	Errors     map[string]string `json:"errors"`
}

// SystemStatus is the engine-wide read-only projection.
type SystemStatus struct {
	EngineName         string         `json:"engine_name"`
	Version            string         `json:"version"`
	TotalWorkflows     int            `json:"total_workflows"`
	ActiveWorkflows    int            `json:"active_workflows"`
	WorkflowsExecuted  int64          `json:"workflows_executed"`
	TasksExecuted      int64          `json:"tasks_executed"`
	RollbacksPerformed int64          `json:"rollbacks_performed"`
	RegisteredAgents   []string       `json:"registered_agents"`
	AvailableTemplates []WorkflowType `json:"available_templates"`
}

// Engine is the workflow orchestration facade: it owns the agent
// registry, the workflow store, the templates, and the event bus.
type Engine struct {
	logger    *zap.Logger
	collector *metrics.Collector
	tracer    trace.Tracer
	defaults  Defaults

	registry *agentRegistry
	bus      *eventBus

	mu        sync.RWMutex
	workflows map[string]*Workflow
	templates map[WorkflowType]TemplateFunc
	active    map[string]struct{}

	workflowsExecuted  atomic.Int64
	tasksExecuted      atomic.Int64
	rollbacksPerformed atomic.Int64
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCollector wires a Prometheus metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for
// workflow and task spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer("runway/workflow") }
}

// WithDefaults overrides the engine-level execution defaults.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) {
		if d.MaxParallelTasks <= 0 {
			d.MaxParallelTasks = DefaultMaxParallelTasks
		}
		e.defaults = d
	}
}

// New creates a workflow engine with the built-in templates registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		defaults: Defaults{
			MaxParallelTasks: DefaultMaxParallelTasks,
			EnableRollback:   true,
		},
		registry:  newAgentRegistry(),
		workflows: make(map[string]*Workflow),
		templates: make(map[WorkflowType]TemplateFunc),
		active:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("runway/workflow")
	}
	e.bus = newEventBus(e.logger)
	e.registerBuiltinTemplates()

	e.logger.Info("workflow engine initialized",
		zap.String("engine", engineName),
		zap.String("version", engineVersion),
		zap.Int("templates", len(e.templates)),
	)
	return e
}

// RegisterAgent adds an agent to the registry. Tasks reference agents
// purely by this string key.
func (e *Engine) RegisterAgent(agentType string, agent Agent) {
	e.registry.register(agentType, agent)
	e.logger.Info("agent registered", zap.String("agent_type", agentType))
}

// RegisterTemplate adds or replaces a workflow template.
func (e *Engine) RegisterTemplate(wfType WorkflowType, fn TemplateFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[wfType] = fn
}

// SubscribeToEvents registers an observer for the given event type.
// Subscriber errors and panics are swallowed and logged.
func (e *Engine) SubscribeToEvents(eventType EventType, handler EventHandler) {
	e.bus.subscribe(eventType, handler)
	e.logger.Info("subscribed to event", zap.String("event_type", string(eventType)))
}

// CreateWorkflow builds a workflow from a registered template when one
// matches wfType, or ad hoc from spec.Tasks otherwise, computes the
// topological task order, and stores the workflow. A cyclic task graph
// fails creation atomically: the error surfaces and nothing is stored.
func (e *Engine) CreateWorkflow(wfType WorkflowType, spec Spec) (*Workflow, error) {
	e.mu.RLock()
	template, hasTemplate := e.templates[wfType]
	e.mu.RUnlock()

	var w *Workflow
	var err error
	if hasTemplate {
		w, err = template(spec)
		if err != nil {
			e.logger.Error("workflow creation failed", zap.Error(err))
			return nil, err
		}
	} else {
		w, err = e.buildCustomWorkflow(wfType, spec)
		if err != nil {
			e.logger.Error("workflow creation failed", zap.Error(err))
			return nil, err
		}
	}

	order, err := topologicalSort(w)
	if err != nil {
		e.logger.Error("workflow creation failed",
			zap.String("workflow", w.Name),
			zap.Error(err),
		)
		return nil, err
	}
	w.TaskOrder = order

	e.mu.Lock()
	e.workflows[w.ID] = w
	e.mu.Unlock()

	e.logger.Info("workflow created",
		zap.String("workflow_id", w.ID),
		zap.String("workflow", w.Name),
		zap.Int("tasks", w.TaskCount()),
	)
	return w, nil
}

func (e *Engine) buildCustomWorkflow(wfType WorkflowType, spec Spec) (*Workflow, error) {
	name := spec.Name
	if name == "" {
		name = "Custom Workflow"
	}
	w := NewWorkflow(name, wfType)
	w.Description = spec.Description
	w.CreatedBy = spec.CreatedBy
	w.ContinueOnFailure = spec.ContinueOnFailure
	w.MaxParallelTasks = spec.MaxParallelTasks
	if w.MaxParallelTasks <= 0 {
		w.MaxParallelTasks = e.defaults.MaxParallelTasks
	}
	w.EnableRollback = e.defaults.EnableRollback
	if spec.EnableRollback != nil {
		w.EnableRollback = *spec.EnableRollback
	}

	// Task specs reference each other by name; resolve to generated IDs.
	idsByName := make(map[string]string, len(spec.Tasks))
	tasks := make([]*Task, 0, len(spec.Tasks))
	for _, ts := range spec.Tasks {
		if ts.Name == "" {
			return nil, types.NewError(types.ErrInvalidWorkflowSpec, "task name cannot be empty")
		}
		if _, dup := idsByName[ts.Name]; dup {
			return nil, types.Errorf(types.ErrInvalidWorkflowSpec, "duplicate task name: %s", ts.Name)
		}
		if ts.RetryCount == 0 {
			ts.RetryCount = e.defaults.RetryCount
		}
		if ts.RetryDelay == 0 {
			ts.RetryDelay = e.defaults.RetryDelay
		}
		if ts.Timeout == 0 {
			ts.Timeout = e.defaults.TaskTimeout
		}
		t := NewTask(ts)
		idsByName[ts.Name] = t.ID
		tasks = append(tasks, t)
	}
	for _, t := range tasks {
		for i, dep := range t.DependsOn {
			id, known := idsByName[dep]
			if !known {
				return nil, types.Errorf(types.ErrInvalidWorkflowSpec,
					"task %s depends on unknown task: %s", t.Name, dep)
			}
			t.DependsOn[i] = id
		}
		w.AddTask(t)
	}
	return w, nil
}

// Execute runs the workflow to a terminal state. It returns a structured
// summary for both success and expected failure modes; the only error
// returns are an unknown workflow ID and an illegal lifecycle transition
// (e.g. re-executing a finished workflow).
func (e *Engine) Execute(ctx context.Context, workflowID string) (*Summary, error) {
	e.mu.RLock()
	w, ok := e.workflows[workflowID]
	e.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrWorkflowNotFound, "workflow not found: %s", workflowID)
	}

	if err := w.setStatus(StatusRunning); err != nil {
		return nil, err
	}
	w.markStarted()

	e.mu.Lock()
	e.active[workflowID] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, workflowID)
		e.mu.Unlock()
	}()

	ctx, span := e.tracer.Start(ctx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("workflow.id", w.ID),
			attribute.String("workflow.name", w.Name),
			attribute.String("workflow.type", string(w.Type)),
			attribute.Int("workflow.tasks", w.TaskCount()),
		))
	defer span.End()

	e.bus.emit(ctx, w, EventWorkflowStarted, map[string]any{
		"workflow_name": w.Name,
		"total_tasks":   w.TaskCount(),
	})
	e.logger.Info("executing workflow",
		zap.String("workflow_id", w.ID),
		zap.String("workflow", w.Name),
		zap.Int("tasks", w.TaskCount()),
	)

	executor := newTaskExecutor(e.registry, e.logger, e.collector, e.tracer)
	sched := newScheduler(executor, e.bus, e.logger)
	sched.onTaskExecuted = func() { e.tasksExecuted.Add(1) }

	runErr := sched.run(ctx, w)
	if runErr == nil {
		return e.finishCompleted(ctx, w), nil
	}
	return e.finishFailed(ctx, w, runErr), nil
}

func (e *Engine) finishCompleted(ctx context.Context, w *Workflow) *Summary {
	_ = w.setStatus(StatusCompleted)
	w.markEnded()
	duration := w.Duration()

	e.workflowsExecuted.Add(1)
	e.collector.RecordWorkflow(string(w.Type), "completed", duration)

	e.bus.emit(ctx, w, EventWorkflowCompleted, map[string]any{
		"duration_seconds": duration.Seconds(),
		"tasks_completed":  w.CompletedCount(),
	})
	e.logger.Info("workflow completed",
		zap.String("workflow_id", w.ID),
		zap.String("workflow", w.Name),
		zap.Duration("duration", duration),
		zap.Int("tasks_completed", w.CompletedCount()),
	)

	return &Summary{
		Success:        true,
		WorkflowID:     w.ID,
		Status:         w.Status(),
		Duration:       duration,
		TasksCompleted: w.CompletedCount(),
		TasksFailed:    w.FailedCount(),
		TasksSkipped:   w.SkippedCount(),
		Results:        w.Results(),
	}
}

func (e *Engine) finishFailed(ctx context.Context, w *Workflow, runErr error) *Summary {
	_ = w.setStatus(StatusFailed)
	w.markEnded()

	e.collector.RecordWorkflow(string(w.Type), "failed", w.Duration())
	e.logger.Error("workflow failed",
		zap.String("workflow_id", w.ID),
		zap.String("workflow", w.Name),
		zap.Error(runErr),
	)

	var compensationFailed []string
	if w.EnableRollback {
		comp := newCompensator(e.registry, e.bus, e.logger)
		_, compensationFailed = comp.rollback(ctx, w)
		_ = w.setStatus(StatusRolledBack)
		e.rollbacksPerformed.Add(1)
		e.collector.RecordRollback(string(w.Type))
	}

	e.bus.emit(ctx, w, EventWorkflowFailed, map[string]any{
		"error":           runErr.Error(),
		"tasks_completed": w.CompletedCount(),
		"tasks_failed":    w.FailedCount(),
	})

	return &Summary{
		Success:            false,
		WorkflowID:         w.ID,
		Status:             w.Status(),
		Duration:           w.Duration(),
		TasksCompleted:     w.CompletedCount(),
		TasksFailed:        w.FailedCount(),
		TasksSkipped:       w.SkippedCount(),
		Error:              runErr.Error(),
		RolledBack:         w.EnableRollback,
		CompensationFailed: compensationFailed,
	}
}

// Workflow returns a stored workflow by ID.
func (e *Engine) Workflow(workflowID string) (*Workflow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.workflows[workflowID]
	return w, ok
}

// WorkflowStatus returns a read-only snapshot of a workflow's progress.
func (e *Engine) WorkflowStatus(workflowID string) (*StatusReport, error) {
	e.mu.RLock()
	w, ok := e.workflows[workflowID]
	e.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrWorkflowNotFound, "workflow not found: %s", workflowID)
	}

	total := w.TaskCount()
	completed := w.CompletedCount()
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total) * 100
	}
	return &StatusReport{
		WorkflowID: w.ID,
		Name:       w.Name,
		Status:     w.Status(),
		Progress: Progress{
			TotalTasks:     total,
			CompletedTasks: completed,
			FailedTasks:    w.FailedCount(),
			SkippedTasks:   w.SkippedCount(),
			CurrentTasks:   w.InFlightCount(),
			Percentage:     pct,
		},
		StartTime: w.StartTime(),
		EndTime:   w.EndTime(),
		Duration:  w.Duration(),
		Results:   w.Results(),
		Errors:    w.Errors(),
	}, nil
}

// Status returns the engine-wide snapshot.
func (e *Engine) Status() SystemStatus {
	e.mu.RLock()
	totalWorkflows := len(e.workflows)
	activeWorkflows := len(e.active)
	templates := make([]WorkflowType, 0, len(e.templates))
	for wfType := range e.templates {
		templates = append(templates, wfType)
	}
	e.mu.RUnlock()

	return SystemStatus{
		EngineName:         engineName,
		Version:            engineVersion,
		TotalWorkflows:     totalWorkflows,
		ActiveWorkflows:    activeWorkflows,
		WorkflowsExecuted:  e.workflowsExecuted.Load(),
		TasksExecuted:      e.tasksExecuted.Load(),
		RollbacksPerformed: e.rollbacksPerformed.Load(),
		RegisteredAgents:   e.registry.names(),
		AvailableTemplates: templates,
	}
}
