package events

import (
	"sync"
	"testing"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmitToClient(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	other := &mockSubscriber{}
	bus.Subscribe("alice", world.TeamBlue, sub)
	bus.Subscribe("bob", world.TeamBlue, other)

	bus.EmitToClient("alice", Event{Type: EvDebugMessage, Text: "Syntax error"})

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Client != "alice" || events[0].Text != "Syntax error" {
		t.Errorf("unexpected event %+v", events[0])
	}
	if len(other.Events()) != 0 {
		t.Error("other client should not receive a targeted event")
	}
}

func TestBusBroadcast(t *testing.T) {
	bus := NewBus()
	a := &mockSubscriber{}
	b := &mockSubscriber{}
	global := &mockSubscriber{}
	bus.Subscribe("alice", world.TeamBlue, a)
	bus.Subscribe("bob", world.TeamPurple, b)
	bus.SubscribeGlobal(global)

	bus.Broadcast(Event{Type: EvAddBuff, Source: 42})

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("every client should get one event: %d %d", len(a.Events()), len(b.Events()))
	}
	if a.Events()[0].Client != "alice" || b.Events()[0].Client != "bob" {
		t.Error("recipient not stamped on client copies")
	}
	g := global.Events()
	if len(g) != 1 || g[0].Client != world.System {
		t.Errorf("global subscriber should get one unaddressed copy, got %+v", g)
	}
}

func TestBusEmitToTeam(t *testing.T) {
	bus := NewBus()
	blue := &mockSubscriber{}
	purple := &mockSubscriber{}
	bus.Subscribe("alice", world.TeamBlue, blue)
	bus.Subscribe("bob", world.TeamPurple, purple)

	bus.EmitToTeam(world.TeamPurple, Event{Type: EvVisibility})

	if len(blue.Events()) != 0 {
		t.Error("blue client received a purple-team event")
	}
	got := purple.Events()
	if len(got) != 1 || got[0].Team != world.TeamPurple {
		t.Errorf("unexpected purple events %+v", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	bus.Subscribe("alice", world.TeamBlue, sub)
	bus.Unsubscribe("alice", sub)

	bus.Broadcast(Event{Type: EvDebugMessage, Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
	if bus.ClientSubscribers("alice") != 0 {
		t.Error("client entry should be gone")
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}

	bus.Subscribe("alice", world.TeamBlue, sub)
	bus.EmitToClient("alice", Event{Type: EvDebugMessage, Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &mockSubscriber{}
	closed := &mockSubscriber{isClosed: true}

	bus.Subscribe("alice", world.TeamBlue, active)
	bus.Subscribe("alice", world.TeamBlue, closed)
	bus.SubscribeGlobal(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.ClientSubscribers("alice") != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.ClientSubscribers("alice"))
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvAddBuff, "add_buff"},
		{EvRemoveBuff, "remove_buff"},
		{EvDash, "dash"},
		{EvResumeGame, "resume_game"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
