// Package variants implements one core.ExecutorVariant per supported
// external AI agent CLI (claude, codex, gemini, deep-seek, glm). Each
// variant differs only in the shell command it builds and how it parses a
// line of that command's stdout into a display message; every other
// concern (inactivity timeout, log capture, Registry forwarding) lives in
// the supervisor package.
package variants

import (
	"fmt"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

// Registry resolves an executor variant by its CLI-facing name.
type Registry struct {
	byName map[string]core.ExecutorVariant
}

// NewRegistry builds the registry with all five known variants.
func NewRegistry() *Registry {
	all := []core.ExecutorVariant{
		Claude{},
		Codex{},
		Gemini{},
		DeepSeek{},
		GLM{},
	}
	byName := make(map[string]core.ExecutorVariant, len(all))
	for _, v := range all {
		byName[v.Name()] = v
	}
	return &Registry{byName: byName}
}

// Get returns the variant registered under name, or a DomainError if none
// matches — the spec's "Unknown executor type: <name>" contract.
func (r *Registry) Get(name string) (core.ExecutorVariant, error) {
	v, ok := r.byName[name]
	if !ok {
		return nil, core.ErrInvalidInput("UNKNOWN_EXECUTOR", fmt.Sprintf("Unknown executor type: %s", name))
	}
	return v, nil
}

// Names lists every registered variant name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for _, e := range core.Executors {
		if _, ok := r.byName[e]; ok {
			names = append(names, e)
		}
	}
	return names
}

// tierEffort maps a model tier to each variant's reasoning-effort flag
// value: fast→low, medium→medium, hard→high.
func tierEffort(tier core.ModelTier) string {
	switch tier {
	case core.TierFast:
		return "low"
	case core.TierHard:
		return "high"
	default:
		return "medium"
	}
}
