package phases

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_PlanIncludesTaskNameAndDeps(t *testing.T) {
	out, err := render("plan.md.tmpl", struct {
		TaskName string
		Scope    string
		Deps     []string
		TaskFile string
	}{
		TaskName: "task-a",
		Scope:    "backend",
		Deps:     []string{"task-b", "task-c"},
		TaskFile: "do the thing",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"task-a", "backend", "task-b, task-c", "do the thing"} {
		if !contains(out, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, out)
		}
	}
}

func TestRender_ReviewTogglesPushLanguage(t *testing.T) {
	pushed, err := render("review.md.tmpl", struct {
		TaskName string
		WorkDir  string
		TodoFile string
		Push     bool
	}{TaskName: "t", WorkDir: "/w", TodoFile: "", Push: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(pushed, "push the resulting branch") {
		t.Errorf("expected push language, got:\n%s", pushed)
	}

	notPushed, err := render("review.md.tmpl", struct {
		TaskName string
		WorkDir  string
		TodoFile string
		Push     bool
	}{TaskName: "t", WorkDir: "/w", TodoFile: "", Push: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(notPushed, "Do not push") {
		t.Errorf("expected no-push language, got:\n%s", notPushed)
	}
}

func TestRender_DeadlockListsDiagnostics(t *testing.T) {
	out, err := render("deadlock.md.tmpl", struct {
		WorkDir     string
		Diagnostics []struct {
			Task           string
			IncompleteDeps []string
			MissingDeps    []string
		}
	}{
		WorkDir: "/w",
		Diagnostics: []struct {
			Task           string
			IncompleteDeps []string
			MissingDeps    []string
		}{
			{Task: "task-a", IncompleteDeps: []string{"task-b"}, MissingDeps: nil},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(out, "task-a") || !contains(out, "task-b") {
		t.Errorf("rendered prompt missing diagnostic detail:\n%s", out)
	}
}

func TestCheckNoCriticalBugs_MissingFilePasses(t *testing.T) {
	if err := checkNoCriticalBugs(t.TempDir()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckNoCriticalBugs_NoneFoundPasses(t *testing.T) {
	root := t.TempDir()
	writeBugs(t, root, "## Critical\nNone found.\n")
	if err := checkNoCriticalBugs(root); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckNoCriticalBugs_ContentFails(t *testing.T) {
	root := t.TempDir()
	writeBugs(t, root, "## Critical\nnil pointer dereference in handler.go\n")
	if err := checkNoCriticalBugs(root); err == nil {
		t.Error("expected error for remaining critical bug")
	}
}

func TestCheckNoCriticalBugs_EmptySectionPasses(t *testing.T) {
	root := t.TempDir()
	writeBugs(t, root, "## Critical\n\n## Minor\nsome nit\n")
	if err := checkNoCriticalBugs(root); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func writeBugs(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "BUGS.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
