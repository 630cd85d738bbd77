// Package phaserunner drives a single task through the fixed
// plan→implement→review pipeline, retrying the implement phase up to a
// per-task attempt budget and delegating the actual work to externally
// supplied phase functions that internally call the Subprocess Supervisor.
package phaserunner

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/diskstate"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
)

// Outcome is the typed completion value a Runner returns to the Scheduler,
// per the spec's message-passing strategy for the Scheduler/Runner cycle:
// the Runner never mutates graph-level state itself.
type Outcome struct {
	// Split is true when the plan phase deleted the task's directory,
	// meaning the task was broken into subtasks that a graph rebuild will
	// discover; the task is considered completed, never failed.
	Split bool
	Err   error
}

// Completed reports whether the task finished successfully (including the
// split case).
func (o Outcome) Completed() bool { return o.Err == nil }

// Runner executes the phase pipeline for one task at a time. It holds no
// per-task state between calls to Run — all progress is read from and
// written to the task's on-disk directory and the shared Registry.
type Runner struct {
	plan        core.PhaseFunc
	implement   core.PhaseFunc
	review      core.PhaseFunc
	allowed     core.AllowedSteps
	maxAttempts int
	noLimit     bool
	retryDelay  time.Duration
	log         *logging.Logger
}

// Config configures a Runner.
type Config struct {
	Plan        core.PhaseFunc
	Implement   core.PhaseFunc
	Review      core.PhaseFunc
	Allowed     core.AllowedSteps // nil/empty means every phase is allowed
	MaxAttempts int               // 0 defaults to core.DefaultMaxAttempts
	NoLimit     bool
	// RetryDelay is the pause between implement-phase retries. 0 defaults
	// to time.Second; callers (including tests) override it directly to
	// avoid incurring real sleeps.
	RetryDelay time.Duration
	Log        *logging.Logger
}

// New constructs a Runner.
func New(cfg Config) *Runner {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = core.DefaultMaxAttempts
	}
	log := cfg.Log
	if log == nil {
		log = logging.NewNop()
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Runner{
		plan:        cfg.Plan,
		implement:   cfg.Implement,
		review:      cfg.Review,
		allowed:     cfg.Allowed,
		maxAttempts: maxAttempts,
		noLimit:     cfg.NoLimit,
		retryDelay:  retryDelay,
		log:         log.WithPhase("runner"),
	}
}

// Run drives task through plan → implement → review, respecting the
// allowed-phases filter and the attempt budget, and returns an Outcome the
// caller uses to update the Scheduler's own bookkeeping. Run never mutates
// task.Status itself — the Scheduler owns that transition.
func (r *Runner) Run(ctx context.Context, task *core.Task, tier core.ModelTier) Outcome {
	log := r.log.WithTask(task.Name)

	if diskstate.IsImplemented(task.Dir).Completed && diskstate.HasApprovedCodeReview(task.Dir) {
		return Outcome{}
	}

	if err := diskstate.RepairTodo(task.Dir); err != nil {
		log.Warn("failed to repair TODO.old.md", "error", err)
	}

	if !diskstate.HasPlan(task.Dir) && r.allows(core.PhasePlan) {
		if err := r.plan(ctx, task, tier); err != nil {
			return Outcome{Err: err}
		}
		if !diskstate.DirExists(task.Dir) {
			log.Info("task directory vanished after plan, treating as split")
			return Outcome{Split: true}
		}
	}

	var lastErr error
	attempt := 0
	for r.noLimit || attempt < r.maxAttempts {
		attempt++

		if isImplementedStatus := diskstate.IsImplemented(task.Dir); !isImplementedStatus.Completed && r.allows(core.PhaseImplement) {
			if err := r.implement(ctx, task, tier); err != nil {
				log.Warn("implement phase failed, retrying", "attempt", attempt, "error", err)
				lastErr = err
				select {
				case <-ctx.Done():
					return Outcome{Err: ctx.Err()}
				case <-time.After(r.retryDelay):
				}
				continue
			}
			lastErr = nil
		}

		if !diskstate.HasApprovedCodeReview(task.Dir) && r.allows(core.PhaseReview) {
			if err := r.review(ctx, task, tier); err != nil {
				return Outcome{Err: err}
			}
			if !diskstate.HasApprovedCodeReview(task.Dir) {
				continue
			}
		}

		return Outcome{}
	}

	return Outcome{Err: core.ErrMaxAttemptsExceeded(task.Name, attempt, lastErr)}
}

func (r *Runner) allows(phase core.Phase) bool {
	return r.allowed.Allows(phase)
}
