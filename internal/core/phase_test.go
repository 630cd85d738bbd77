package core

import "testing"

func TestPhase_Names(t *testing.T) {
	cases := map[Phase]string{
		PhasePlan:        "plan",
		PhaseImplement:   "implement",
		PhaseReview:      "review",
		PhaseGlobalSweep: "global_bug_sweep",
	}
	for p, want := range cases {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %s, want %s", p, p, want)
		}
	}
}

func TestTaskPhases_Order(t *testing.T) {
	got := TaskPhases()
	want := []Phase{PhasePlan, PhaseImplement, PhaseReview}
	if len(got) != len(want) {
		t.Fatalf("expected %d phases, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TaskPhases()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestValidPhase(t *testing.T) {
	for _, p := range []Phase{PhasePlan, PhaseImplement, PhaseReview, PhaseGlobalSweep} {
		if !ValidPhase(p) {
			t.Errorf("expected phase %d to be valid", p)
		}
	}
	if ValidPhase(Phase(99)) {
		t.Errorf("expected phase 99 to be invalid")
	}
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != PhaseImplement {
		t.Fatalf("expected implement phase, got %s", p)
	}
	if _, err := ParsePhase("99"); err == nil {
		t.Fatalf("expected error parsing out-of-range step")
	}
	if _, err := ParsePhase("bogus"); err == nil {
		t.Fatalf("expected error parsing non-numeric step")
	}
}

func TestParseAllowedSteps(t *testing.T) {
	steps, err := ParseAllowedSteps("")
	if err != nil || steps != nil {
		t.Fatalf("expected nil allowed steps for empty csv, got %v, err %v", steps, err)
	}

	steps, err = ParseAllowedSteps("4, 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !steps.Allows(PhasePlan) || !steps.Allows(PhaseImplement) {
		t.Fatalf("expected plan and implement to be allowed")
	}
	if steps.Allows(PhaseReview) {
		t.Fatalf("expected review to be disallowed")
	}

	if _, err := ParseAllowedSteps("4,bogus"); err == nil {
		t.Fatalf("expected error for malformed csv entry")
	}
}

func TestAllowedSteps_NilAllowsEverything(t *testing.T) {
	var steps AllowedSteps
	for _, p := range []Phase{PhasePlan, PhaseImplement, PhaseReview, PhaseGlobalSweep} {
		if !steps.Allows(p) {
			t.Errorf("expected nil AllowedSteps to allow phase %s", p)
		}
	}
}
