// Package conflict implements the File Conflict Resolver (spec §4.5): it
// scans a task graph for pending tasks that declare overlapping files and
// serializes them with a synthetic dependency edge instead of letting them
// race.
package conflict

import (
	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
)

// Pair records one conflict found between two tasks and the files that
// overlap between them, for the warning summary the Resolver emits.
type Pair struct {
	First  string
	Second string
	Files  []string
}

// Resolve scans every unordered pair of pending tasks in g for overlapping
// Files sets, in graph-enumeration order, and adds an edge from the later
// task to the earlier one (second depends on first) unless that dependency
// already exists transitively. It returns the conflicts it found, in the
// order they were resolved, for logging.
func Resolve(g *core.Graph, log *logging.Logger) []Pair {
	if log == nil {
		log = logging.NewNop()
	}

	names := g.Names()
	var found []Pair

	for i := 0; i < len(names); i++ {
		first := g.Get(names[i])
		if first == nil || len(first.Files) == 0 {
			continue
		}
		for j := i + 1; j < len(names); j++ {
			second := g.Get(names[j])
			if second == nil || len(second.Files) == 0 {
				continue
			}

			overlap := overlappingFiles(first.Files, second.Files)
			if len(overlap) == 0 {
				continue
			}

			found = append(found, Pair{First: first.Name, Second: second.Name, Files: overlap})

			if g.DependsOnTransitively(second.Name, first.Name) {
				continue
			}
			second.Deps = append(second.Deps, first.Name)
		}
	}

	if len(found) > 0 {
		log.Warn("resolved file conflicts by adding synthetic dependencies", "conflicts", summarize(found))
	}

	return found
}

func overlappingFiles(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, f := range a {
		set[f] = true
	}
	var overlap []string
	for _, f := range b {
		if set[f] {
			overlap = append(overlap, f)
		}
	}
	return overlap
}

func summarize(pairs []Pair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Second+" -> "+p.First)
	}
	return out
}
