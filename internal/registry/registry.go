// Package registry implements the Task State Registry: a process-wide
// singleton that holds the latest known status/step/message for every task
// in the current run, feeding both the terminal UI renderer and the
// Subprocess Supervisor's updateMessage forwarding.
package registry

import (
	"sync"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
)

// Entry is one task's registry row.
type Entry struct {
	Status  core.Status
	Step    *string
	Message *string
}

// Registry is safe for concurrent use; all mutators are serialized behind a
// single mutex, matching the spec's "Registry is the only concurrency-shared
// writable state" requirement.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	order    []string
	uiActive bool
	log      *logging.Logger
}

// New creates an empty Registry.
func New(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.NewNop()
	}
	return &Registry{
		entries: make(map[string]*Entry),
		log:     log,
	}
}

// Initialize accepts either an ordered slice of task names or a map of
// name→status, clears all previous entries, and creates one fresh entry per
// name (status defaulted to pending, step/message nil). Resets the
// UI-active flag to false.
func (r *Registry) Initialize(tasks any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := taskNames(tasks)
	if err != nil {
		return err
	}

	r.entries = make(map[string]*Entry, len(names))
	r.order = r.order[:0]
	for _, name := range names {
		r.entries[name] = &Entry{Status: core.StatusPending}
		r.order = append(r.order, name)
	}
	r.uiActive = false
	return nil
}

func taskNames(tasks any) ([]string, error) {
	switch v := tasks.(type) {
	case []string:
		return v, nil
	case map[string]core.Status:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		return names, nil
	case map[string]string:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, core.ErrInvalidInput("INVALID_INITIALIZE_ARG", "initialize expects a name sequence or a name-to-status mapping")
	}
}

// Seed adds a single fresh pending entry for name if one does not already
// exist, leaving every other entry untouched. Used by the Scheduler when a
// graph rebuild discovers a task that was not part of the initial
// Initialize call (e.g. a subtask produced by a split).
func (r *Registry) Seed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return
	}
	r.entries[name] = &Entry{Status: core.StatusPending}
	r.order = append(r.order, name)
}

// UpdateStatus rejects an out-of-enum status. An unknown task name logs a
// warning and is a no-op; it never mutates state and never returns an error
// for that case (per the spec's "unknown-name updates never mutate state"
// invariant — only a structurally invalid status value errors).
func (r *Registry) UpdateStatus(name string, status core.Status) error {
	if !status.IsValid() {
		return core.ErrInvalidStatus(string(status))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		r.log.Warn("updateStatus on unknown task", "task", name)
		return nil
	}
	entry.Status = status
	return nil
}

// UpdateStep stores text as the task's current step label, or clears it
// when text is nil. Unknown name → warn, no-op.
func (r *Registry) UpdateStep(name string, text *string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		r.log.Warn("updateStep on unknown task", "task", name)
		return
	}
	entry.Step = text
}

// UpdateMessage stores text as the task's latest message, truncating to 100
// characters plus an ellipsis (103 total) when longer. An empty string
// clears the message to nil, matching a null/undefined message. Unknown
// name → warn, no-op.
func (r *Registry) UpdateMessage(name, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		r.log.Warn("updateMessage on unknown task", "task", name)
		return
	}

	if text == "" {
		entry.Message = nil
		return
	}

	if len(text) > core.MaxStoredMessageLength {
		truncated := text[:core.MaxStoredMessageLength] + "..."
		entry.Message = &truncated
		return
	}
	entry.Message = &text
}

// Snapshot returns a shallow copy of every entry, keyed by task name. The
// internal container is never exposed by reference.
func (r *Registry) Snapshot() map[string]Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Entry, len(r.entries))
	for name, entry := range r.entries {
		out[name] = *entry
	}
	return out
}

// SetUIActive records whether a terminal UI renderer currently owns the
// screen.
func (r *Registry) SetUIActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uiActive = active
}

// IsUIActive reports the current UI-active flag.
func (r *Registry) IsUIActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uiActive
}
