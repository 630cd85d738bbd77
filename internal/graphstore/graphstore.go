// Package graphstore implements the Graph Store: it owns the on-disk
// projection of the task graph (one directory per task under
// .claudiomiro/task-executor/) and rebuilds an in-memory core.Graph from it
// on demand, for the Scheduler to merge via core.Graph.Diff.
package graphstore

import (
	"context"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/diskstate"
)

// TaskExecutorDirName is the fixed subdirectory name under the workspace
// root that holds every task's directory.
const TaskExecutorDirName = ".claudiomiro/task-executor"

// Store rebuilds a core.Graph from the on-disk task directories under a
// workspace root.
type Store struct {
	workspaceRoot string
	index         *Index
}

// New constructs a Store rooted at workspaceRoot.
func New(workspaceRoot string) *Store {
	return &Store{workspaceRoot: workspaceRoot}
}

// Index returns the currently open side index, or nil if none has been
// opened yet.
func (s *Store) Index() *Index {
	return s.index
}

// EnsureIndex opens the sqlite side index (§4.13) if it is not already
// open. Failure to open it is non-fatal: the index is a queryable cache,
// never the source of truth, so callers may ignore the error and keep
// running with indexing disabled.
func (s *Store) EnsureIndex() error {
	if s.index != nil {
		return nil
	}
	idx, err := OpenIndex(s.TaskExecutorDir())
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

// TaskExecutorDir returns the fixed task-executor directory under the
// workspace root.
func (s *Store) TaskExecutorDir() string {
	return filepath.Join(s.workspaceRoot, TaskExecutorDirName)
}

// Rebuild scans every task directory, parses its TASK.md for scope and
// dependencies, and derives a status from the on-disk implementation/review
// markers: completed if both an implemented execution marker and an
// approved code review are present, pending otherwise. It never reports a
// task as failed or running from disk alone — those transitions only occur
// in the Scheduler's in-memory state, which core.Graph.Diff preserves on
// merge.
func (s *Store) Rebuild(ctx context.Context) (*core.Graph, error) {
	dirs, err := diskstate.ListTaskDirs(s.TaskExecutorDir())
	if err != nil {
		return nil, err
	}

	g := core.NewGraph()
	for _, dir := range dirs {
		name := filepath.Base(dir)

		tf, err := diskstate.ParseTaskFile(dir)
		if err != nil {
			tf = diskstate.TaskFile{Scope: core.ScopeIntegration}
		}

		task := core.NewTask(name, dir).WithScope(tf.Scope).WithDeps(tf.Deps...)

		if diskstate.IsImplemented(dir).Completed && diskstate.HasApprovedCodeReview(dir) {
			task.MarkCompleted()
		}

		g.Add(task)
	}

	if s.index != nil {
		_ = s.index.Sync(ctx, g, time.Now())
	}

	return g, nil
}

// RebuildFunc adapts Rebuild to the core.RebuildFunc signature the
// Scheduler expects.
func (s *Store) RebuildFunc() core.RebuildFunc {
	return s.Rebuild
}
