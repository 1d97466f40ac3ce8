package workflow

import "github.com/devskyy/runway/types"

// topologicalSort produces a total order of the workflow's tasks such that
// every task appears after all tasks in its DependsOn set, using Kahn's
// algorithm. Tie-breaking among simultaneously-ready tasks follows task
// insertion order, which keeps the result deterministic. Dependency IDs
// that reference unknown tasks are ignored.
//
// A graph with a cycle yields a CYCLIC_DEPENDENCY error; the caller must
// treat this as a construction-time failure and not register the workflow.
func topologicalSort(w *Workflow) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	adjacent := make(map[string][]string, len(w.tasks))
	inDegree := make(map[string]int, len(w.tasks))
	for _, id := range w.taskIDs {
		adjacent[id] = nil
		inDegree[id] = 0
	}

	for _, id := range w.taskIDs {
		for _, dep := range w.tasks[id].DependsOn {
			if _, known := adjacent[dep]; !known {
				continue
			}
			adjacent[dep] = append(adjacent[dep], id)
			inDegree[id]++
		}
	}

	// FIFO queue seeded in insertion order keeps ties stable.
	var queue []string
	for _, id := range w.taskIDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(w.tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		for _, next := range adjacent[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(sorted) != len(w.tasks) {
		return nil, types.NewError(types.ErrCyclicDependency,
			"workflow contains circular dependencies")
	}
	return sorted, nil
}
