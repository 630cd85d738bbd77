package phaserunner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/core"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writeFile(%s): %v", name, err)
	}
}

func approvedExecution() string { return `{"status":"completed"}` }
func approvedReview() string    { return "## Status\nApproved\n" }

func noopPhase(err error) core.PhaseFunc {
	return func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		return err
	}
}

func TestRunner_AlreadyApproved_ReturnsImmediately(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "execution.json", approvedExecution())
	writeFile(t, dir, "CODE_REVIEW.md", approvedReview())

	calls := 0
	countingPhase := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		calls++
		return nil
	}

	r := New(Config{Plan: countingPhase, Implement: countingPhase, Review: countingPhase})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if !outcome.Completed() {
		t.Fatalf("expected completed outcome, got %+v", outcome)
	}
	if calls != 0 {
		t.Errorf("expected zero phase invocations for already-approved task, got %d", calls)
	}
}

func TestRunner_FullPipeline_Succeeds(t *testing.T) {
	dir := t.TempDir()

	plan := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		writeFile(t, dir, "TODO.md", "the plan")
		return nil
	}
	implement := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		writeFile(t, dir, "execution.json", approvedExecution())
		return nil
	}
	review := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		writeFile(t, dir, "CODE_REVIEW.md", approvedReview())
		return nil
	}

	r := New(Config{Plan: plan, Implement: implement, Review: review})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if !outcome.Completed() {
		t.Fatalf("expected completed outcome, got %+v", outcome)
	}
}

func TestRunner_PlanDeletesDirectory_IsSplit(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "task-dir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	plan := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		return os.RemoveAll(sub)
	}

	r := New(Config{Plan: plan, Implement: noopPhase(nil), Review: noopPhase(nil)})
	outcome := r.Run(context.Background(), core.NewTask("t", sub), core.TierMedium)

	if outcome.Err != nil {
		t.Fatalf("expected no error on split, got %v", outcome.Err)
	}
	if !outcome.Split {
		t.Error("expected Split to be true")
	}
}

func TestRunner_ImplementRetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "TODO.md", "plan")

	attempts := 0
	implement := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		writeFile(t, dir, "execution.json", approvedExecution())
		return nil
	}
	review := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		writeFile(t, dir, "CODE_REVIEW.md", approvedReview())
		return nil
	}

	r := New(Config{Plan: noopPhase(nil), Implement: implement, Review: review, RetryDelay: time.Millisecond})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if !outcome.Completed() {
		t.Fatalf("expected eventual success, got %+v", outcome)
	}
	if attempts != 2 {
		t.Errorf("expected 2 implement attempts, got %d", attempts)
	}
}

func TestRunner_ExhaustsMaxAttempts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "TODO.md", "plan")

	implement := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		return errors.New("always fails")
	}

	r := New(Config{Plan: noopPhase(nil), Implement: implement, Review: noopPhase(nil), MaxAttempts: 2, RetryDelay: time.Millisecond})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if !core.IsCategory(outcome.Err, core.ErrCatMaxAttemptsExceeded) {
		t.Fatalf("expected ErrCatMaxAttemptsExceeded, got %v", outcome.Err)
	}
}

func TestRunner_ReviewFailure_FailsTaskDirectly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "TODO.md", "plan")
	writeFile(t, dir, "execution.json", approvedExecution())

	review := noopPhase(errors.New("review subprocess crashed"))

	r := New(Config{Plan: noopPhase(nil), Implement: noopPhase(nil), Review: review})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if outcome.Err == nil {
		t.Fatal("expected review failure to propagate")
	}
}

func TestRunner_RespectsAllowedSteps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "TODO.md", "plan")
	writeFile(t, dir, "execution.json", approvedExecution())

	reviewCalled := false
	review := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		reviewCalled = true
		return nil
	}

	allowed, err := core.ParseAllowedSteps("4,5")
	if err != nil {
		t.Fatalf("unexpected error parsing steps: %v", err)
	}

	r := New(Config{Plan: noopPhase(nil), Implement: noopPhase(nil), Review: review, Allowed: allowed})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if !outcome.Completed() {
		t.Fatalf("expected completed outcome, got %+v", outcome)
	}
	if reviewCalled {
		t.Error("expected review phase to be skipped when not in allowed steps")
	}
}

func TestRunner_RepairsTodoOldOnRestart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "TODO.old.md", "prior plan")

	planCalled := false
	plan := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		planCalled = true
		return nil
	}
	implement := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		writeFile(t, dir, "execution.json", approvedExecution())
		return nil
	}
	review := func(ctx context.Context, task *core.Task, tier core.ModelTier) error {
		writeFile(t, dir, "CODE_REVIEW.md", approvedReview())
		return nil
	}

	r := New(Config{Plan: plan, Implement: implement, Review: review})
	outcome := r.Run(context.Background(), core.NewTask("t", dir), core.TierMedium)

	if !outcome.Completed() {
		t.Fatalf("expected completed outcome, got %+v", outcome)
	}
	if planCalled {
		t.Error("expected plan to be skipped once TODO.old.md is repaired to TODO.md")
	}
	if _, err := os.Stat(filepath.Join(dir, "TODO.md")); err != nil {
		t.Error("expected TODO.old.md restored to TODO.md")
	}
}
