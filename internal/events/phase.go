package events

import "time"

// Event type constants for the plan/implement/review/global-sweep pipeline.
const (
	TypePhaseStarted   = "phase_started"
	TypePhaseCompleted = "phase_completed"
	TypePhaseRetried   = "phase_retried"
)

// PhaseStartedEvent is emitted when a task enters a phase (plan, implement,
// review, or the final global sweep).
type PhaseStartedEvent struct {
	BaseEvent
	TaskName string `json:"task_name"`
	Phase    string `json:"phase"`
	Attempt  int    `json:"attempt"`
}

// NewPhaseStartedEvent creates a new phase_started event.
func NewPhaseStartedEvent(runID, scope, taskName, phase string, attempt int) PhaseStartedEvent {
	return PhaseStartedEvent{
		BaseEvent: NewBaseEvent(TypePhaseStarted, runID, scope),
		TaskName:  taskName,
		Phase:     phase,
		Attempt:   attempt,
	}
}

// PhaseCompletedEvent is emitted when a phase finishes, successfully or not.
type PhaseCompletedEvent struct {
	BaseEvent
	TaskName string        `json:"task_name"`
	Phase    string        `json:"phase"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
}

// NewPhaseCompletedEvent creates a new phase_completed event.
func NewPhaseCompletedEvent(runID, scope, taskName, phase string, duration time.Duration, success bool) PhaseCompletedEvent {
	return PhaseCompletedEvent{
		BaseEvent: NewBaseEvent(TypePhaseCompleted, runID, scope),
		TaskName:  taskName,
		Phase:     phase,
		Duration:  duration,
		Success:   success,
	}
}

// PhaseRetriedEvent is emitted when the Phase Runner retries a failed phase
// (invalid status, subprocess timeout/exit, or a TODO.old.md repair pass).
type PhaseRetriedEvent struct {
	BaseEvent
	TaskName    string `json:"task_name"`
	Phase       string `json:"phase"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Reason      string `json:"reason"`
}

// NewPhaseRetriedEvent creates a new phase_retried event.
func NewPhaseRetriedEvent(runID, scope, taskName, phase string, attempt, maxAttempts int, reason string) PhaseRetriedEvent {
	return PhaseRetriedEvent{
		BaseEvent:   NewBaseEvent(TypePhaseRetried, runID, scope),
		TaskName:    taskName,
		Phase:       phase,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Reason:      reason,
	}
}
