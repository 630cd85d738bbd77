package core

import "context"

// ModelTier is the reasoning-effort tier requested from the Subprocess
// Supervisor, mapped to each executor variant's own effort flag at spawn
// time (fast→low, medium→medium, hard→high).
type ModelTier string

const (
	TierFast   ModelTier = "fast"
	TierMedium ModelTier = "medium"
	TierHard   ModelTier = "hard"
)

// DefaultModelTier is used when the caller does not specify one.
const DefaultModelTier = TierMedium

// ValidTier reports whether t is one of the three known tiers.
func ValidTier(t ModelTier) bool {
	switch t {
	case TierFast, TierMedium, TierHard:
		return true
	default:
		return false
	}
}

// ExecutorVariant is the plugin-style capability a specific external AI
// agent integration (claude/codex/gemini/deep-seek/glm) implements: the
// shell command it constructs and the event parser for its stdout lines.
// Variants differ only in these two concerns; everything else (inactivity
// timeout, log capture, Registry forwarding) is shared Supervisor logic.
type ExecutorVariant interface {
	// Name is the CLI-facing identifier ("claude", "codex", "gemini",
	// "deep-seek", "glm").
	Name() string

	// BuildCommand returns the executable and argv to run for the given
	// prompt file and model tier. The Supervisor pipes stdin as /dev/null
	// equivalent (ignored) and captures stdout/stderr itself.
	BuildCommand(promptFile string, tier ModelTier, workDir string) (path string, args []string)

	// ParseLine parses one line of raw stdout (JSON or free text) into a
	// human-readable message. ok is false when the line yields no display
	// text (still written to the raw log regardless).
	ParseLine(line []byte) (message string, ok bool)
}

// VariantRegistry resolves an executor variant by name.
type VariantRegistry interface {
	Get(name string) (ExecutorVariant, error)
	Names() []string
}

// PhaseFunc is the opaque phase function the Scheduler/Phase Runner invoke
// for a single task's plan/implement/review step. Phase functions are
// external collaborators (prompt generation and phase logic are
// deliberately out of the core's scope) that internally call the
// Subprocess Supervisor; the core only sees their success/failure.
type PhaseFunc func(ctx context.Context, task *Task, tier ModelTier) error

// RebuildFunc recomputes the task set from disk, returning a fresh Graph
// the Scheduler merges into its in-memory graph via Graph.Diff at the top
// of every loop iteration.
type RebuildFunc func(ctx context.Context) (*Graph, error)

// DeadlockResolver is invoked when the Scheduler detects a stall: no task
// running, none ready. It receives the diagnostic set of pending tasks and
// their unsatisfied dependencies and may edit on-disk TASK.md files to break
// a cycle. It returns an error only if it could not produce any edit at all.
type DeadlockResolver func(ctx context.Context, diagnostics []DeadlockDiagnostic) error

// DeadlockDiagnostic describes one pending task's blockers at the moment a
// stall was detected.
type DeadlockDiagnostic struct {
	Task              string
	IncompleteDeps    []string
	MissingDeps       []string
}
