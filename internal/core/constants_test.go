package core

import "testing"

func TestValidExecutor(t *testing.T) {
	for _, e := range Executors {
		if !ValidExecutor(e) {
			t.Errorf("expected %s to be a valid executor", e)
		}
	}
	if ValidExecutor("aider") {
		t.Errorf("expected aider to be rejected, it is not a wired executor variant")
	}
}

func TestExecutors_ContainsDefault(t *testing.T) {
	found := false
	for _, e := range Executors {
		if e == ExecutorClaude {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected claude (the default executor) to be listed")
	}
}

func TestDefaultMaxAttempts(t *testing.T) {
	if DefaultMaxAttempts != 20 {
		t.Errorf("expected default max attempts 20, got %d", DefaultMaxAttempts)
	}
}

func TestDeadlockConstants(t *testing.T) {
	if DeadlockStallPolls != 5 {
		t.Errorf("expected 5 stall polls, got %d", DeadlockStallPolls)
	}
	if DeadlockMaxResolutionAttempts != 3 {
		t.Errorf("expected 3 resolution attempts, got %d", DeadlockMaxResolutionAttempts)
	}
}
