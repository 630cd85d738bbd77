package events

// Event type constants for task lifecycle, mirroring core.Status transitions.
// ProjectID on these events carries the task's Scope (backend/frontend/
// integration), letting the TUI and web surface filter by scope without a
// second dimension on the bus.
const (
	TypeTaskAdmitted = "task_admitted"
	TypeTaskMessage  = "task_message"
	TypeTaskComplete = "task_completed"
	TypeTaskFailed   = "task_failed"
)

// TaskAdmittedEvent is emitted when the Scheduler admits a ready task.
type TaskAdmittedEvent struct {
	BaseEvent
	TaskName string `json:"task_name"`
}

// NewTaskAdmittedEvent creates a new task_admitted event.
func NewTaskAdmittedEvent(runID, scope, taskName string) TaskAdmittedEvent {
	return TaskAdmittedEvent{
		BaseEvent: NewBaseEvent(TypeTaskAdmitted, runID, scope),
		TaskName:  taskName,
	}
}

// TaskMessageEvent mirrors a Registry.updateMessage call: the latest
// truncated utterance streamed from the external agent driving a task.
type TaskMessageEvent struct {
	BaseEvent
	TaskName string `json:"task_name"`
	Step     string `json:"step,omitempty"`
	Message  string `json:"message"`
}

// NewTaskMessageEvent creates a new task_message event.
func NewTaskMessageEvent(runID, scope, taskName, step, message string) TaskMessageEvent {
	return TaskMessageEvent{
		BaseEvent: NewBaseEvent(TypeTaskMessage, runID, scope),
		TaskName:  taskName,
		Step:      step,
		Message:   message,
	}
}

// TaskCompletedEvent is emitted when a task transitions to Completed.
type TaskCompletedEvent struct {
	BaseEvent
	TaskName string `json:"task_name"`
}

// NewTaskCompletedEvent creates a new task_completed event.
func NewTaskCompletedEvent(runID, scope, taskName string) TaskCompletedEvent {
	return TaskCompletedEvent{
		BaseEvent: NewBaseEvent(TypeTaskComplete, runID, scope),
		TaskName:  taskName,
	}
}

// TaskFailedEvent is emitted when a task transitions to Failed.
type TaskFailedEvent struct {
	BaseEvent
	TaskName string `json:"task_name"`
	Error    string `json:"error"`
}

// NewTaskFailedEvent creates a new task_failed event.
func NewTaskFailedEvent(runID, scope, taskName string, err error) TaskFailedEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return TaskFailedEvent{
		BaseEvent: NewBaseEvent(TypeTaskFailed, runID, scope),
		TaskName:  taskName,
		Error:     msg,
	}
}
