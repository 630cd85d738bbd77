// Package scheduler implements the Scheduler / DAG Executor (spec §4.4):
// the main loop that admits ready tasks under a global and per-scope
// concurrency cap, merges graph rebuilds, resolves file conflicts once,
// detects and resolves deadlocks, and runs the final global sweep phase.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/conflict"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/config"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/events"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/logging"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/phaserunner"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/registry"
)

// globalSweepTaskName is the synthetic task name passed to the global bug
// sweep PhaseFunc, which operates across the whole graph rather than a
// single task.
const globalSweepTaskName = "__global_bug_sweep__"

// Config configures a Scheduler.
type Config struct {
	Graph         *core.Graph
	Runner        *phaserunner.Runner
	Tier          core.ModelTier
	Allowed       core.AllowedSteps
	MaxConcurrent int // 0 defaults to config.DefaultConcurrency()

	Rebuild          core.RebuildFunc       // optional
	DeadlockResolver core.DeadlockResolver  // optional
	GlobalSweep      core.PhaseFunc         // optional, run if PhaseGlobalSweep is allowed
	WorkspaceRoot    string

	Registry *registry.Registry
	Bus      *events.EventBus
	RunID    string
	Log      *logging.Logger
}

type completionMsg struct {
	name    string
	outcome phaserunner.Outcome
}

// Scheduler drives the main loop described in spec §4.4.2.
type Scheduler struct {
	graph  *core.Graph
	runner *phaserunner.Runner
	tier   core.ModelTier

	allowed       core.AllowedSteps
	maxConcurrent int

	rebuild          core.RebuildFunc
	deadlockResolver core.DeadlockResolver
	globalSweep      core.PhaseFunc
	workspaceRoot    string

	reg   *registry.Registry
	bus   *events.EventBus
	runID string
	log   *logging.Logger

	mu             sync.Mutex
	totalRunning   int
	runningByScope map[core.Scope]int

	fileConflictsResolved bool
	stallCount            int
	deadlockAttempts      int

	completions chan completionMsg

	pollInterval      time.Duration
	stallPollInterval time.Duration

	lastSnapshot time.Time
}

// New constructs a Scheduler.
func New(cfg Config) *Scheduler {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultConcurrency()
	}
	tier := cfg.Tier
	if tier == "" {
		tier = core.DefaultModelTier
	}
	log := cfg.Log
	if log == nil {
		log = logging.NewNop()
	}

	return &Scheduler{
		graph:             cfg.Graph,
		runner:            cfg.Runner,
		tier:              tier,
		allowed:           cfg.Allowed,
		maxConcurrent:     maxConcurrent,
		rebuild:           cfg.Rebuild,
		deadlockResolver:  cfg.DeadlockResolver,
		globalSweep:       cfg.GlobalSweep,
		workspaceRoot:     cfg.WorkspaceRoot,
		reg:               cfg.Registry,
		bus:               cfg.Bus,
		runID:             cfg.RunID,
		log:               log.WithPhase("scheduler"),
		runningByScope:    make(map[core.Scope]int),
		completions:       make(chan completionMsg, 64),
		pollInterval:      time.Duration(core.PollIntervalMillis) * time.Millisecond,
		stallPollInterval: time.Duration(core.StallPollIntervalMillis) * time.Millisecond,
	}
}

// Run executes the main loop until every task is terminal and none is
// running, then runs the final global sweep phase if allowed. It returns a
// non-nil error if any task ended failed, if deadlock resolution was
// exhausted, or if the global sweep phase itself failed.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.reg != nil {
		_ = s.reg.Initialize(s.graph.Names())
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.drainCompletions()

		if s.rebuild != nil {
			newGraph, err := s.rebuild(ctx)
			if err != nil {
				s.log.Warn("graph rebuild failed, continuing with current graph", "error", err)
			} else {
				before := s.graph.Names()
				s.graph.Diff(newGraph)
				s.seedNewRegistryEntries(before)
			}
		}

		s.resolveFileConflictsOnce()

		s.admitReady(ctx)

		s.mu.Lock()
		running := s.totalRunning
		s.mu.Unlock()

		if s.graph.AllTerminal() && running == 0 {
			break
		}

		s.logSnapshotThrottled()

		if running > 0 {
			s.stallCount = 0
			s.sleep(ctx, s.pollInterval)
			continue
		}

		// running == 0 here: admitReady raises totalRunning synchronously
		// for anything it admits, so reaching this branch means no ready
		// task exists this iteration.
		s.stallCount++
		if s.stallCount >= core.DeadlockStallPolls {
			if err := s.handleDeadlock(ctx); err != nil {
				return err
			}
			continue
		}
		s.sleep(ctx, s.stallPollInterval)
	}

	if failed := s.failedNames(); len(failed) > 0 {
		return fmt.Errorf("task mesh run failed: tasks did not complete: %v", failed)
	}

	if s.allowed.Allows(core.PhaseGlobalSweep) && s.globalSweep != nil {
		sweepTask := core.NewTask(globalSweepTaskName, s.workspaceRoot)
		if err := s.globalSweep(ctx, sweepTask, s.tier); err != nil {
			return fmt.Errorf("global bug sweep found remaining critical bugs: %w", err)
		}
	}

	return nil
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (s *Scheduler) drainCompletions() {
	for {
		select {
		case msg := <-s.completions:
			s.markComplete(msg.name, msg.outcome)
		default:
			return
		}
	}
}

// admitReady enumerates ready tasks in graph order, admits every one that
// passes canExecute under the concurrency caps, and spawns a Phase Runner
// for each as an independent goroutine. It returns the number admitted.
func (s *Scheduler) admitReady(ctx context.Context) int {
	ready := s.graph.Ready()

	var toRun []*core.Task
	s.mu.Lock()
	for _, name := range ready {
		t := s.graph.Get(name)
		if t == nil {
			continue
		}
		if !s.canExecuteLocked(t) {
			continue
		}
		s.markRunningLocked(t)
		toRun = append(toRun, t)
	}
	s.mu.Unlock()

	for _, t := range toRun {
		t := t
		go s.runTask(ctx, t)
	}
	return len(toRun)
}

// canExecuteLocked implements the layered admission gate of §4.4.1. Caller
// must hold s.mu.
func (s *Scheduler) canExecuteLocked(t *core.Task) bool {
	if s.totalRunning >= s.maxConcurrent {
		return false
	}
	if t.Scope == core.ScopeBackend || t.Scope == core.ScopeFrontend {
		if s.runningByScope[t.Scope] >= s.maxConcurrent {
			return false
		}
	}
	return true
}

func (s *Scheduler) markRunningLocked(t *core.Task) {
	t.MarkRunning()
	s.totalRunning++
	s.runningByScope[t.Scope]++

	if s.reg != nil {
		_ = s.reg.UpdateStatus(t.Name, core.StatusRunning)
	}
	if s.bus != nil {
		s.bus.Publish(events.NewTaskAdmittedEvent(s.runID, string(t.Scope), t.Name))
	}
}

func (s *Scheduler) runTask(ctx context.Context, t *core.Task) {
	outcome := s.runner.Run(ctx, t, s.tier)
	s.completions <- completionMsg{name: t.Name, outcome: outcome}
}

func (s *Scheduler) markComplete(name string, outcome phaserunner.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.graph.Get(name)
	if t == nil {
		return
	}

	if s.totalRunning > 0 {
		s.totalRunning--
	}
	if s.runningByScope[t.Scope] > 0 {
		s.runningByScope[t.Scope]--
	}

	if outcome.Err != nil {
		t.MarkFailed(outcome.Err)
		if s.reg != nil {
			_ = s.reg.UpdateStatus(name, core.StatusFailed)
		}
		if s.bus != nil {
			s.bus.Publish(events.NewTaskFailedEvent(s.runID, string(t.Scope), name, outcome.Err))
		}
		return
	}

	t.MarkCompleted()
	if s.reg != nil {
		_ = s.reg.UpdateStatus(name, core.StatusCompleted)
	}
	if s.bus != nil {
		s.bus.Publish(events.NewTaskCompletedEvent(s.runID, string(t.Scope), name))
	}
}

func (s *Scheduler) resolveFileConflictsOnce() {
	if s.fileConflictsResolved {
		return
	}
	conflict.Resolve(s.graph, s.log)
	s.fileConflictsResolved = true
}

func (s *Scheduler) seedNewRegistryEntries(before []string) {
	if s.reg == nil {
		return
	}
	known := make(map[string]bool, len(before))
	for _, name := range before {
		known[name] = true
	}
	for _, name := range s.graph.Names() {
		if !known[name] {
			s.reg.Seed(name)
		}
	}
}

func (s *Scheduler) failedNames() []string {
	var out []string
	for _, name := range s.graph.Names() {
		if t := s.graph.Get(name); t != nil && t.Status == core.StatusFailed {
			out = append(out, name)
		}
	}
	return out
}

// handleDeadlock implements §4.4.4: gather diagnostics for every pending
// task, hand them to the external resolver, rebuild the graph, and reset
// the stall counter. It returns ErrDeadlockUnresolvable once the resolution
// attempt budget is exhausted.
func (s *Scheduler) handleDeadlock(ctx context.Context) error {
	s.deadlockAttempts++
	if s.deadlockAttempts > core.DeadlockMaxResolutionAttempts {
		return core.ErrDeadlockUnresolvable(s.pendingNames())
	}

	if s.deadlockResolver == nil {
		return core.ErrDeadlockUnresolvable(s.pendingNames())
	}

	diagnostics := s.diagnose()
	if err := s.deadlockResolver(ctx, diagnostics); err != nil {
		s.log.Warn("deadlock resolver could not produce an edit", "attempt", s.deadlockAttempts, "error", err)
	}

	if s.rebuild != nil {
		if newGraph, err := s.rebuild(ctx); err == nil {
			before := s.graph.Names()
			s.graph.Diff(newGraph)
			s.seedNewRegistryEntries(before)
		}
	}

	s.stallCount = 0
	return nil
}

func (s *Scheduler) diagnose() []core.DeadlockDiagnostic {
	var out []core.DeadlockDiagnostic
	for _, name := range s.graph.Names() {
		t := s.graph.Get(name)
		if t == nil || t.Status != core.StatusPending {
			continue
		}
		incomplete, missing := s.graph.UnsatisfiedDeps(name)
		out = append(out, core.DeadlockDiagnostic{
			Task:           name,
			IncompleteDeps: incomplete,
			MissingDeps:    missing,
		})
	}
	return out
}

func (s *Scheduler) pendingNames() []string {
	var out []string
	for _, name := range s.graph.Names() {
		if t := s.graph.Get(name); t != nil && t.Status == core.StatusPending {
			out = append(out, name)
		}
	}
	return out
}

func (s *Scheduler) logSnapshotThrottled() {
	if time.Since(s.lastSnapshot) < time.Duration(core.PendingSnapshotThrottleSeconds)*time.Second {
		return
	}
	s.lastSnapshot = time.Now()

	var pending []string
	for _, name := range s.graph.Names() {
		t := s.graph.Get(name)
		if t == nil || t.Status != core.StatusPending {
			continue
		}
		incomplete, missing := s.graph.UnsatisfiedDeps(name)
		pending = append(pending, fmt.Sprintf("%s(waiting on %v, missing %v)", name, incomplete, missing))
	}
	if len(pending) > 0 {
		s.log.Info("pending tasks snapshot", "pending", pending)
	}
}
