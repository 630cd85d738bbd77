package graphstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var indexSchema string

// indexFileName is the fixed side-index file under the task-executor
// directory. It is a queryable cache over the marker-file projection, never
// the source of truth: its absence or corruption never changes scheduling.
const indexFileName = "index.db"

// Index is the sqlite side-index described by the Graph Store's persistent
// index (a fast historical view of {task_name, status, scope, updated_at}
// without reparsing every marker file tree on every query).
type Index struct {
	db *sql.DB
}

// IndexRow is one task's row in the side index.
type IndexRow struct {
	TaskName  string
	Status    core.Status
	Scope     core.Scope
	UpdatedAt time.Time
}

// OpenIndex opens (creating if absent) the side index at
// taskExecutorDir/index.db. A corrupt or unreadable file is replaced with a
// fresh one rather than failing the run, matching the index's "derivable,
// never authoritative" contract.
func OpenIndex(taskExecutorDir string) (*Index, error) {
	if err := os.MkdirAll(taskExecutorDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating task-executor directory: %w", err)
	}
	path := filepath.Join(taskExecutorDir, indexFileName)

	idx, err := openAndMigrate(path)
	if err != nil {
		// Corrupt or unreadable file: drop it and rebuild from scratch.
		_ = os.Remove(path)
		idx, err = openAndMigrate(path)
		if err != nil {
			return nil, fmt.Errorf("rebuilding corrupt index: %w", err)
		}
	}
	return idx, nil
}

func openAndMigrate(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(indexSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close releases the underlying connection.
func (idx *Index) Close() error {
	if idx == nil || idx.db == nil {
		return nil
	}
	return idx.db.Close()
}

// Sync upserts one row per task currently in g, stamping updated_at with
// now. It replaces the whole table contents so that tasks removed from the
// marker-file projection (a deleted task directory) also disappear from the
// index.
func (idx *Index) Sync(ctx context.Context, g *core.Graph, now time.Time) error {
	if idx == nil {
		return nil
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_index"); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	for _, name := range g.Names() {
		task := g.Get(name)
		if task == nil {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_index (task_name, status, scope, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(task_name) DO UPDATE SET
				status = excluded.status,
				scope = excluded.scope,
				updated_at = excluded.updated_at
		`, task.Name, string(task.Status), string(task.Scope), now)
		if err != nil {
			return fmt.Errorf("upserting %s: %w", task.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index sync: %w", err)
	}
	return nil
}

// Snapshot returns every row currently in the index, for historical queries
// such as "how long did each task spend in each status across the run".
func (idx *Index) Snapshot(ctx context.Context) ([]IndexRow, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT task_name, status, scope, updated_at FROM task_index ORDER BY task_name")
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		var status, scope string
		if err := rows.Scan(&r.TaskName, &status, &scope, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		r.Status = core.Status(status)
		r.Scope = core.Scope(scope)
		out = append(out, r)
	}
	return out, rows.Err()
}
