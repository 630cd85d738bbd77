package diskstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStartFresh_RemovesStateButPreservesInsights(t *testing.T) {
	root := t.TempDir()
	taskExecDir := filepath.Join(root, "task-executor")

	writeFile(t, mkdir(t, taskExecDir, "task-a"), "TASK.md", "@scope backend\n")
	writeFile(t, mkdir(t, taskExecDir, "insights"), "notes.md", "hard-won lessons\n")

	if err := StartFresh(taskExecDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(taskExecDir, "task-a")); !os.IsNotExist(err) {
		t.Errorf("expected task-a to be removed, stat err = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(taskExecDir, "insights", "notes.md"))
	if err != nil {
		t.Fatalf("expected insights/notes.md to survive: %v", err)
	}
	if string(data) != "hard-won lessons\n" {
		t.Errorf("insights content changed: %q", data)
	}
}

func TestStartFresh_NoInsightsDirIsFine(t *testing.T) {
	root := t.TempDir()
	taskExecDir := filepath.Join(root, "task-executor")
	writeFile(t, mkdir(t, taskExecDir, "task-a"), "TASK.md", "\n")

	if err := StartFresh(taskExecDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(taskExecDir); !os.IsNotExist(err) {
		t.Errorf("expected task-executor dir removed entirely, stat err = %v", err)
	}
}

func TestStartFresh_MissingDirIsNoop(t *testing.T) {
	root := t.TempDir()
	if err := StartFresh(filepath.Join(root, "does-not-exist")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
