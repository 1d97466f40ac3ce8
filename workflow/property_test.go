package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// randomDAG builds a workflow of n tasks where task i depends on a
// pseudo-random subset of tasks 0..i-1 derived from seed, which keeps the
// graph acyclic by construction.
func randomDAG(n int, seed int64) *Workflow {
	w := NewWorkflow("generated", TypeCustom)
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		var deps []string
		for j := 0; j < i; j++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			if (seed>>33)%3 == 0 {
				deps = append(deps, tasks[j].ID)
			}
		}
		tasks[i] = NewTask(TaskSpec{
			Name:        "t",
			AgentType:   "design",
			AgentMethod: "work",
			DependsOn:   deps,
		})
		w.AddTask(tasks[i])
	}
	return w
}

func TestProperty_TopologicalOrderRespectsDependencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every task sorts after all of its dependencies", prop.ForAll(
		func(n int, seed int64) bool {
			w := randomDAG(n, seed)

			order, err := topologicalSort(w)
			if err != nil {
				t.Logf("sort failed on acyclic graph: %v", err)
				return false
			}
			if len(order) != n {
				t.Logf("expected %d tasks in order, got %d", n, len(order))
				return false
			}

			idx := orderIndex(order)
			for _, id := range order {
				task, _ := w.Task(id)
				for _, dep := range task.DependsOn {
					if idx[dep] >= idx[id] {
						t.Logf("dependency %s sorted after dependent %s", dep, id)
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_CyclicGraphAlwaysRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("adding a back edge to a chain is rejected", prop.ForAll(
		func(n int, from int, to int) bool {
			// Chain t0 <- t1 <- ... <- tn-1, plus a back edge that closes
			// a cycle.
			if from >= n {
				from %= n
			}
			if to >= n {
				to %= n
			}
			if from > to {
				from, to = to, from
			}

			w := NewWorkflow("cyclic", TypeCustom)
			tasks := make([]*Task, n)
			for i := 0; i < n; i++ {
				var deps []string
				if i > 0 {
					deps = []string{tasks[i-1].ID}
				}
				tasks[i] = NewTask(TaskSpec{Name: "t", DependsOn: deps})
				w.AddTask(tasks[i])
			}
			tasks[from].DependsOn = append(tasks[from].DependsOn, tasks[to].ID)

			_, err := topologicalSort(w)
			return err != nil
		},
		gen.IntRange(2, 15),
		gen.IntRange(0, 14),
		gen.IntRange(0, 14),
	))

	properties.TestingRun(t)
}

func TestProperty_ExecutionNeverRunsTaskBeforeDependencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("completion order embeds the dependency partial order", prop.ForAll(
		func(n int, seed int64, maxParallel int) bool {
			var mu sync.Mutex
			var completions []string

			registry := registryWith("design", CapabilityMap{
				"work": func(ctx context.Context, params map[string]any) (any, error) {
					mu.Lock()
					completions = append(completions, params["task_id"].(string))
					mu.Unlock()
					return nil, nil
				},
			})

			w := randomDAG(n, seed)
			w.MaxParallelTasks = maxParallel
			order, err := topologicalSort(w)
			if err != nil {
				return false
			}
			w.TaskOrder = order
			for _, id := range order {
				task, _ := w.Task(id)
				task.Parameters["task_id"] = task.ID
			}

			sched := newScheduler(newTestExecutor(registry), newEventBus(zap.NewNop()), zap.NewNop())
			if err := sched.run(context.Background(), w); err != nil {
				t.Logf("run failed: %v", err)
				return false
			}
			if w.CompletedCount() != n {
				t.Logf("expected %d completed, got %d", n, w.CompletedCount())
				return false
			}

			seen := make(map[string]int, len(completions))
			for i, id := range completions {
				seen[id] = i
			}
			for _, id := range order {
				task, _ := w.Task(id)
				for _, dep := range task.DependsOn {
					if seen[dep] >= seen[id] {
						t.Logf("task completed before its dependency")
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Int64(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

func TestProperty_ParallelismNeverExceedsCap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("in-flight tasks stay within MaxParallelTasks", prop.ForAll(
		func(n int, maxParallel int) bool {
			var running, peak atomic.Int32
			registry := registryWith("design", CapabilityMap{
				"work": func(ctx context.Context, params map[string]any) (any, error) {
					now := running.Add(1)
					for {
						old := peak.Load()
						if now <= old || peak.CompareAndSwap(old, now) {
							break
						}
					}
					running.Add(-1)
					return nil, nil
				},
			})

			w := NewWorkflow("bounded", TypeCustom)
			w.MaxParallelTasks = maxParallel
			for i := 0; i < n; i++ {
				w.AddTask(NewTask(TaskSpec{Name: "t", AgentType: "design", AgentMethod: "work"}))
			}
			order, err := topologicalSort(w)
			if err != nil {
				return false
			}
			w.TaskOrder = order

			sched := newScheduler(newTestExecutor(registry), newEventBus(zap.NewNop()), zap.NewNop())
			if err := sched.run(context.Background(), w); err != nil {
				return false
			}
			return peak.Load() <= int32(maxParallel)
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
