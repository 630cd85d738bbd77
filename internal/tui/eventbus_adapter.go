package tui

import (
	"github.com/hugo-lorenzo-mato/taskmesh/internal/events"
)

// logFeed bridges EventBus log/task-message events into a buffered channel
// the bubbletea Program reads from via waitForLogLine, keeping Update's main
// switch free of any direct EventBus dependency beyond this one
// subscription. Mirrors the teacher's EventBusAdapter shape, narrowed to
// the two event types the log pane displays.
type logFeed struct {
	ch  <-chan events.Event
	out chan LogLineMsg
}

func newLogFeed(bus *events.EventBus) *logFeed {
	f := &logFeed{
		ch:  bus.Subscribe(events.TypeLog, events.TypeTaskMessage),
		out: make(chan LogLineMsg, 256),
	}
	go f.run()
	return f
}

func (f *logFeed) run() {
	for e := range f.ch {
		switch ev := e.(type) {
		case events.LogEvent:
			f.send(LogLineMsg{Level: ev.Level, Message: ev.Message})
		case events.TaskMessageEvent:
			f.send(LogLineMsg{Level: "info", Message: ev.TaskName + ": " + ev.Message})
		}
	}
	close(f.out)
}

// send applies the same ring-buffer drop-oldest policy as the EventBus
// itself: a full log pane buffer should never block event delivery.
func (f *logFeed) send(line LogLineMsg) {
	select {
	case f.out <- line:
		return
	default:
	}
	select {
	case <-f.out:
	default:
	}
	select {
	case f.out <- line:
	default:
	}
}
