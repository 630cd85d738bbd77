package core

// Graph is a mapping from task name to Task. It is mutable at runtime: a
// phase function may split a task into subtasks, add dependencies, or mark
// tasks complete out of band; the Scheduler reconciles those effects via
// Diff at the top of every loop iteration.
type Graph struct {
	// order preserves insertion order so ready-task enumeration stays
	// deterministic, matching the "mirrors insertion order of the graph"
	// requirement on readiness.
	order []string
	tasks map[string]*Task
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add inserts or replaces a task, recording insertion order the first time
// a given name is seen.
func (g *Graph) Add(t *Task) {
	if _, exists := g.tasks[t.Name]; !exists {
		g.order = append(g.order, t.Name)
	}
	g.tasks[t.Name] = t
}

// Remove deletes a task by name, preserving the relative order of the rest.
func (g *Graph) Remove(name string) {
	if _, ok := g.tasks[name]; !ok {
		return
	}
	delete(g.tasks, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Get returns the task named name, or nil if absent.
func (g *Graph) Get(name string) *Task {
	return g.tasks[name]
}

// Has reports whether a task named name exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.tasks[name]
	return ok
}

// Names returns task names in insertion order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Ready returns names of pending tasks whose dependencies are all completed,
// in graph-insertion order.
func (g *Graph) Ready() []string {
	completed := make(map[string]bool, len(g.tasks))
	for name, t := range g.tasks {
		if t.Status == StatusCompleted {
			completed[name] = true
		}
	}
	var ready []string
	for _, name := range g.order {
		t := g.tasks[name]
		if t.IsReady(completed) {
			ready = append(ready, name)
		}
	}
	return ready
}

// AllTerminal reports whether every task is completed or failed.
func (g *Graph) AllTerminal() bool {
	for _, t := range g.tasks {
		if !t.IsTerminal() {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any task ended failed.
func (g *Graph) AnyFailed() bool {
	for _, t := range g.tasks {
		if t.Status == StatusFailed {
			return true
		}
	}
	return false
}

// UnsatisfiedDeps returns, for a pending task, the subset of its deps that
// are not completed, split into deps that exist in the graph but are not
// done versus deps that don't exist in the graph at all. Used by deadlock
// diagnosis (spec-mandated distinction).
func (g *Graph) UnsatisfiedDeps(name string) (incomplete, missing []string) {
	t := g.tasks[name]
	if t == nil {
		return nil, nil
	}
	for _, d := range t.Deps {
		dep, ok := g.tasks[d]
		switch {
		case !ok:
			missing = append(missing, d)
		case dep.Status != StatusCompleted:
			incomplete = append(incomplete, d)
		}
	}
	return incomplete, missing
}

// DependsOnTransitively reports whether task `from` already (transitively)
// depends on `to`, used by the File Conflict Resolver to avoid introducing
// a redundant or cyclic edge.
func (g *Graph) DependsOnTransitively(from, to string) bool {
	visited := make(map[string]bool)
	var walk func(name string) bool
	walk = func(name string) bool {
		if visited[name] {
			return false
		}
		visited[name] = true
		t := g.tasks[name]
		if t == nil {
			return false
		}
		for _, d := range t.Deps {
			if d == to {
				return true
			}
			if walk(d) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// Diff merges newGraph into g per the graph-rebuild rules (spec.md §4.4.3):
//   - a name present in newGraph but absent from g is added, seeded pending
//     with the scope/deps newGraph carries for it;
//   - a name present in both has its Deps replaced by newGraph's; if g's
//     in-memory copy is still pending and newGraph marks it completed, it is
//     promoted to completed (running/completed in memory always wins
//     otherwise, since the on-disk view can lag a concurrently running task);
//   - a name tracked in g but absent from newGraph is dropped only if its
//     in-memory status is still pending (it was split or deleted) UNLESS
//     some task surviving in newGraph lists it as a dependency, in which
//     case it is coalesced to completed instead of dropped (preserves the
//     source behavior noted as a bug to fix in spec.md §9).
func (g *Graph) Diff(newGraph *Graph) {
	referencedAsDep := make(map[string]bool)
	for _, name := range newGraph.order {
		for _, d := range newGraph.tasks[name].Deps {
			referencedAsDep[d] = true
		}
	}

	for _, name := range newGraph.order {
		incoming := newGraph.tasks[name]
		existing := g.tasks[name]
		if existing == nil {
			g.Add(incoming)
			continue
		}
		existing.Deps = incoming.Deps
		if existing.Status == StatusPending && incoming.Status == StatusCompleted {
			existing.MarkCompleted()
		}
	}

	for _, name := range g.Names() {
		if newGraph.Has(name) {
			continue
		}
		existing := g.tasks[name]
		if existing.Status != StatusPending {
			continue
		}
		if referencedAsDep[name] {
			existing.MarkCompleted()
			continue
		}
		g.Remove(name)
	}
}
