package core

import "fmt"

// Phase is a stage of the per-task pipeline. Numbering matches the step
// numbers accepted by the CLI's --steps=<csv> flag.
type Phase int

const (
	PhasePlan      Phase = 4
	PhaseImplement Phase = 5
	PhaseReview    Phase = 6
	// PhaseGlobalSweep is the final cross-task bug sweep run once after the
	// main loop, not part of any single task's pipeline.
	PhaseGlobalSweep Phase = 7
)

// TaskPhases returns the three phases a single task's Phase Runner drives,
// in order.
func TaskPhases() []Phase {
	return []Phase{PhasePlan, PhaseImplement, PhaseReview}
}

// ValidPhase reports whether p is one of the four known phase numbers.
func ValidPhase(p Phase) bool {
	switch p {
	case PhasePlan, PhaseImplement, PhaseReview, PhaseGlobalSweep:
		return true
	default:
		return false
	}
}

// ParsePhase parses a decimal step number into a Phase.
func ParsePhase(s string) (Phase, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid step %q: %w", s, err)
	}
	p := Phase(n)
	if !ValidPhase(p) {
		return 0, fmt.Errorf("invalid step %q: must be one of 4,5,6,7", s)
	}
	return p, nil
}

// String renders the phase's name.
func (p Phase) String() string {
	switch p {
	case PhasePlan:
		return "plan"
	case PhaseImplement:
		return "implement"
	case PhaseReview:
		return "review"
	case PhaseGlobalSweep:
		return "global_bug_sweep"
	default:
		return "unknown"
	}
}

// AllowedSteps is the parsed form of --steps=<csv>: a set of phase numbers
// the Scheduler and Phase Runner are restricted to. A nil/empty set means
// "run everything" (the default).
type AllowedSteps map[Phase]bool

// ParseAllowedSteps parses a comma-separated list of step numbers. An empty
// string returns a nil AllowedSteps, meaning no restriction.
func ParseAllowedSteps(csv string) (AllowedSteps, error) {
	if csv == "" {
		return nil, nil
	}
	steps := make(AllowedSteps)
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			tok := trimSpace(csv[start:i])
			if tok != "" {
				p, err := ParsePhase(tok)
				if err != nil {
					return nil, err
				}
				steps[p] = true
			}
			start = i + 1
		}
	}
	return steps, nil
}

// Allows reports whether phase p should run given the allowed-steps
// restriction. A nil/empty AllowedSteps allows everything.
func (a AllowedSteps) Allows(p Phase) bool {
	if len(a) == 0 {
		return true
	}
	return a[p]
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
