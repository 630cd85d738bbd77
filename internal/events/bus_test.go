package events

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEventBus_Subscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()

	event := NewTaskAdmittedEvent("run-1", "", "task-a")
	bus.Publish(event)

	select {
	case received := <-ch:
		if received.EventType() != TypeTaskAdmitted {
			t.Errorf("expected %s, got %s", TypeTaskAdmitted, received.EventType())
		}
		if received.WorkflowID() != "run-1" {
			t.Errorf("expected run-1, got %s", received.WorkflowID())
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	taskCh := bus.Subscribe(TypeTaskAdmitted, TypeTaskComplete)
	allCh := bus.Subscribe()

	bus.Publish(NewPhaseStartedEvent("run-1", "", "task-a", "plan", 1))
	bus.Publish(NewTaskAdmittedEvent("run-1", "", "task-a"))

	select {
	case <-allCh:
	case <-time.After(100 * time.Millisecond):
		t.Error("allCh should receive phase event")
	}
	select {
	case <-allCh:
	case <-time.After(100 * time.Millisecond):
		t.Error("allCh should receive task event")
	}

	select {
	case received := <-taskCh:
		if received.EventType() != TypeTaskAdmitted {
			t.Errorf("expected task_admitted, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("taskCh should receive task event")
	}
}

func TestEventBus_PriorityNeverDrops(t *testing.T) {
	bus := New(5) // Small buffer
	defer bus.Close()

	priorityCh := bus.SubscribePriority()

	for i := 0; i < 100; i++ {
		bus.Publish(NewLogEvent("run-1", "", "info", "log message", nil))
	}

	failedEvent := NewTaskFailedEvent("run-1", "", "task-a", nil)
	bus.PublishPriority(failedEvent)

	select {
	case received := <-priorityCh:
		if received.EventType() != TypeTaskFailed {
			t.Errorf("expected task_failed, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("priority event was dropped")
	}
}

func TestEventBus_RingBufferDropsOldest(t *testing.T) {
	bus := New(5)
	defer bus.Close()

	ch := bus.Subscribe()

	for i := 0; i < 10; i++ {
		bus.Publish(NewLogEvent("run-1", "", "info", "message", nil))
	}

	if bus.DroppedCount() == 0 {
		t.Error("expected some events to be dropped")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			goto done
		}
	}
done:

	if received == 0 {
		t.Error("should have received at least some events")
	}
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	bus := New(100)
	defer bus.Close()

	ch := bus.Subscribe()

	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				bus.Publish(NewLogEvent("run-1", "", "info", "concurrent", nil))
			}
		}(i)
	}

	wg.Wait()

	received := 0
drainLoop:
	for {
		select {
		case <-ch:
			received++
		default:
			break drainLoop
		}
	}

	if received == 0 {
		t.Error("should have received some events")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	_, ok := <-ch
	if ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

// Scope filtering tests (BaseEvent.Project/ProjectID repurposed to carry
// task Scope rather than a project identifier).

func TestEventBus_SubscribeForProject(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	chBackend := bus.SubscribeForProject("backend")
	chFrontend := bus.SubscribeForProject("frontend")
	chAll := bus.Subscribe()

	eventBackend := NewTaskAdmittedEvent("run-1", "backend", "task-a")
	bus.Publish(eventBackend)

	eventFrontend := NewTaskAdmittedEvent("run-2", "frontend", "task-b")
	bus.Publish(eventFrontend)

	time.Sleep(10 * time.Millisecond)

	select {
	case e := <-chBackend:
		if e.ProjectID() != "backend" {
			t.Errorf("chBackend received wrong scope: %s", e.ProjectID())
		}
	default:
		t.Error("chBackend should have received an event")
	}

	select {
	case e := <-chBackend:
		t.Errorf("chBackend should not receive frontend event, got: %s", e.ProjectID())
	default:
		// Expected - no more events
	}

	select {
	case e := <-chFrontend:
		if e.ProjectID() != "frontend" {
			t.Errorf("chFrontend received wrong scope: %s", e.ProjectID())
		}
	default:
		t.Error("chFrontend should have received an event")
	}

	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-chAll:
			count++
		default:
		}
	}
	if count != 2 {
		t.Errorf("chAll should receive 2 events, got %d", count)
	}
}

func TestEventBus_SubscribeForProjectWithTypes(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.SubscribeForProject("backend", TypeTaskAdmitted)

	event1 := NewTaskAdmittedEvent("run-1", "backend", "task-a")
	bus.Publish(event1)

	event2 := NewTaskCompletedEvent("run-1", "backend", "task-a")
	bus.Publish(event2)

	event3 := NewTaskAdmittedEvent("run-2", "frontend", "task-b")
	bus.Publish(event3)

	time.Sleep(10 * time.Millisecond)

	count := 0
	for {
		select {
		case e := <-ch:
			count++
			if e.ProjectID() != "backend" || e.EventType() != TypeTaskAdmitted {
				t.Errorf("received unexpected event: scope=%s, type=%s",
					e.ProjectID(), e.EventType())
			}
		default:
			goto done
		}
	}
done:

	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}
}

func TestEventBus_ProjectFilteringConcurrent(t *testing.T) {
	bus := New(100)
	defer bus.Close()

	scopes := []string{"backend", "frontend", "integration"}
	channels := make([]<-chan Event, len(scopes))
	for i, s := range scopes {
		channels[i] = bus.SubscribeForProject(s)
	}

	const eventsPerScope = 100
	var wg sync.WaitGroup
	for i, s := range scopes {
		wg.Add(1)
		go func(scope string, idx int) {
			defer wg.Done()
			for e := 0; e < eventsPerScope; e++ {
				event := NewTaskAdmittedEvent(
					fmt.Sprintf("run-%d-%d", idx, e), scope, "task")
				bus.Publish(event)
			}
		}(s, i)
	}

	wg.Wait()
	time.Sleep(50 * time.Millisecond)

	for i, s := range scopes {
		count := 0
		for {
			select {
			case e := <-channels[i]:
				count++
				if e.ProjectID() != s {
					t.Errorf("channel %d received event from wrong scope: %s", i, e.ProjectID())
				}
			default:
				goto nextChannel
			}
		}
	nextChannel:
		if count != eventsPerScope {
			t.Errorf("channel %d received %d events, expected %d", i, count, eventsPerScope)
		}
	}
}

func TestEventBus_EmptyProjectIDReceivesAll(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.SubscribeForProject("")

	bus.Publish(NewTaskAdmittedEvent("run-1", "backend", "task-a"))
	bus.Publish(NewTaskAdmittedEvent("run-2", "frontend", "task-b"))
	bus.Publish(NewTaskAdmittedEvent("run-3", "", "task-c"))

	time.Sleep(10 * time.Millisecond)

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:

	if count != 3 {
		t.Errorf("expected 3 events, got %d", count)
	}
}

func TestEventBus_ProjectIDMethod(t *testing.T) {
	be := NewBaseEvent(TypeTaskAdmitted, "run-1", "backend")

	if be.ProjectID() != "backend" {
		t.Errorf("expected ProjectID 'backend', got '%s'", be.ProjectID())
	}

	be2 := NewBaseEvent(TypeTaskAdmitted, "run-2", "")
	if be2.ProjectID() != "" {
		t.Errorf("expected empty ProjectID, got '%s'", be2.ProjectID())
	}
}

func TestEventBus_SubscribeForProjectWithPriority(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	chBackend := bus.SubscribeForProjectWithPriority("backend")

	eventBackend := NewTaskFailedEvent("run-1", "backend", "task-a", nil)
	bus.PublishPriority(eventBackend)

	eventFrontend := NewTaskFailedEvent("run-2", "frontend", "task-b", nil)
	bus.PublishPriority(eventFrontend)

	time.Sleep(10 * time.Millisecond)

	count := 0
	for {
		select {
		case e := <-chBackend:
			count++
			if e.ProjectID() != "backend" {
				t.Errorf("chBackend received wrong scope: %s", e.ProjectID())
			}
		default:
			goto done
		}
	}
done:

	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}
}

func TestEventBus_SubscribeOnClosedBus(t *testing.T) {
	bus := New(10)
	bus.Close()

	ch := bus.SubscribeForProject("backend")

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed")
		}
	default:
		// Channel is closed, this is expected
	}
}

func TestEventBus_BaseEventLegacy(t *testing.T) {
	be := NewBaseEventLegacy(TypeTaskAdmitted, "run-1")

	if be.WorkflowID() != "run-1" {
		t.Errorf("expected WorkflowID 'run-1', got '%s'", be.WorkflowID())
	}

	if be.ProjectID() != "" {
		t.Errorf("expected empty ProjectID for legacy event, got '%s'", be.ProjectID())
	}
}
