package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SpinnerTickMsg drives SpinnerModel's custom frame animation forward.
type SpinnerTickMsg time.Time

// PollTickMsg triggers a fresh Registry.snapshot() read, the renderer's
// only source of task state (§4.12: strictly read-only, polled on a tick).
type PollTickMsg time.Time

// LogLineMsg carries one line forwarded from the event bus's log and
// task-message events into the log pane.
type LogLineMsg struct {
	Level   string
	Message string
}

func pollTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return PollTickMsg(t)
	})
}

// waitForLogLine blocks on ch for the next forwarded bus message. Returning
// it as a tea.Cmd (rather than polling) keeps log updates from competing
// with the spinner/poll ticks for CPU between bus events.
func waitForLogLine(ch <-chan LogLineMsg) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return line
	}
}
