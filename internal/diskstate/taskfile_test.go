package diskstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

func mkdir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestParseTaskFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		skip     bool
		wantScope core.Scope
		wantDeps []string
	}{
		{
			name:      "missing file defaults to integration, no deps",
			skip:      true,
			wantScope: core.ScopeIntegration,
		},
		{
			name:      "explicit backend scope with deps",
			content:   "# Task\n@scope backend\n@dependencies [a, b]\n",
			wantScope: core.ScopeBackend,
			wantDeps:  []string{"a", "b"},
		},
		{
			name:      "case-insensitive scope directive",
			content:   "@SCOPE Frontend\n",
			wantScope: core.ScopeFrontend,
		},
		{
			name:      "no directives defaults to integration",
			content:   "Just a description of the work.\n",
			wantScope: core.ScopeIntegration,
		},
		{
			name:      "empty dependency list",
			content:   "@scope integration\n@dependencies []\n",
			wantScope: core.ScopeIntegration,
		},
		{
			name:      "quoted dependency entries",
			content:   `@dependencies ["a", "b", "c"]` + "\n",
			wantScope: core.ScopeIntegration,
			wantDeps:  []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if !tt.skip {
				writeFile(t, dir, "TASK.md", tt.content)
			}

			got, err := ParseTaskFile(dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Scope != tt.wantScope {
				t.Errorf("Scope = %v, want %v", got.Scope, tt.wantScope)
			}
			if len(got.Deps) != len(tt.wantDeps) {
				t.Fatalf("Deps = %v, want %v", got.Deps, tt.wantDeps)
			}
			for i, dep := range tt.wantDeps {
				if got.Deps[i] != dep {
					t.Errorf("Deps[%d] = %q, want %q", i, got.Deps[i], dep)
				}
			}
		})
	}
}

func TestListTaskDirs(t *testing.T) {
	root := t.TempDir()

	writeFile(t, mkdir(t, root, "task-a"), "TASK.md", "@scope backend\n")
	writeFile(t, mkdir(t, root, "task-b"), "TASK.md", "@scope frontend\n")
	mkdir(t, root, "not-a-task") // no TASK.md

	dirs, err := ListTaskDirs(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 task dirs, got %d: %v", len(dirs), dirs)
	}
}

func TestListTaskDirs_MissingRootReturnsEmpty(t *testing.T) {
	dirs, err := ListTaskDirs("/no/such/task-executor-dir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dirs != nil {
		t.Errorf("expected nil for missing root, got %v", dirs)
	}
}
