package events

import (
	"sync"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus is a per-client pub/sub event bus with support for global subscribers.
// Simulation code emits structured events; each subscriber (WebSocket
// session, replay log, metrics) encodes them for its own purpose.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[world.ClientID][]Subscriber
	teams       map[world.ClientID]world.TeamID
	global      []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[world.ClientID][]Subscriber),
		teams:       make(map[world.ClientID]world.TeamID),
	}
}

// Subscribe registers a subscriber for a client on the given team.
func (b *Bus) Subscribe(client world.ClientID, team world.TeamID, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[client] = append(b.subscribers[client], sub)
	b.teams[client] = team
}

// Unsubscribe removes a subscriber for a client.
func (b *Bus) Unsubscribe(client world.ClientID, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[client]
	for i, s := range subs {
		if s == sub {
			b.subscribers[client] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[client]) == 0 {
		delete(b.subscribers, client)
		delete(b.teams, client)
	}
}

// SubscribeGlobal registers a subscriber that receives every event once.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// snapshot copies the recipient lists matched by keep under the read lock.
func (b *Bus) snapshot(keep func(world.ClientID) bool) (map[world.ClientID][]Subscriber, []Subscriber) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[world.ClientID][]Subscriber)
	for client, subs := range b.subscribers {
		if keep(client) {
			out[client] = append([]Subscriber(nil), subs...)
		}
	}
	return out, append([]Subscriber(nil), b.global...)
}

func deliver(subs []Subscriber, ev Event) {
	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// Broadcast sends an event to every client and all global subscribers.
func (b *Bus) Broadcast(ev Event) {
	targets, globals := b.snapshot(func(world.ClientID) bool { return true })
	for client, subs := range targets {
		clientEv := ev
		clientEv.Client = client
		deliver(subs, clientEv)
	}
	ev.Client = world.System
	deliver(globals, ev)
}

// EmitToClient sends an event to one client and all global subscribers.
func (b *Bus) EmitToClient(client world.ClientID, ev Event) {
	ev.Client = client
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subscribers[client]...)
	globals := append([]Subscriber(nil), b.global...)
	b.mu.RUnlock()

	deliver(subs, ev)
	deliver(globals, ev)
}

// EmitToTeam sends an event to every client on team and all global subscribers.
func (b *Bus) EmitToTeam(team world.TeamID, ev Event) {
	b.mu.RLock()
	teams := make(map[world.ClientID]world.TeamID, len(b.teams))
	for c, t := range b.teams {
		teams[c] = t
	}
	b.mu.RUnlock()

	targets, globals := b.snapshot(func(c world.ClientID) bool { return teams[c] == team })
	ev.Team = team
	for client, subs := range targets {
		clientEv := ev
		clientEv.Client = client
		deliver(subs, clientEv)
	}
	ev.Client = world.System
	deliver(globals, ev)
}

// ClientSubscribers returns the number of subscribers for a client.
func (b *Bus) ClientSubscribers(client world.ClientID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[client])
}

// Cleanup removes closed subscribers from all lists.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for client, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, client)
			delete(b.teams, client)
		} else {
			b.subscribers[client] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}
