// Package handlers validates inbound client packets and applies them to the
// simulation. A handler returning false means the packet was dropped
// without any side effect.
package handlers

import (
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/crystal-mush/riftcore/pkg/api"
	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/players"
	"github.com/crystal-mush/riftcore/pkg/sched"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// Handler processes one packet type on one channel.
type Handler interface {
	PacketType() packets.Cmd
	Channel() packets.Channel
	HandlePacket(peer world.ClientID, data []byte) bool
}

// PauseState is the simulation-wide pause flag.
type PauseState interface {
	IsPaused() bool
	Pause()
	Unpause()
}

// ChatDispatcher runs chat commands.
type ChatDispatcher interface {
	Execute(peer world.ClientID, message string) bool
}

// DefaultResumeDelay is how long a resume countdown lasts.
const DefaultResumeDelay = 5 * time.Second

// Env is what the built-in handlers operate on.
type Env struct {
	API          *api.API
	Players      *players.Manager
	Pause        PauseState
	SystemTimers *sched.Scheduler
	ResumeDelay  time.Duration
	Chat         ChatDispatcher
	ChatPrefix   string
}

type key struct {
	cmd packets.Cmd
	ch  packets.Channel
}

// Manager routes packets to the handler registered for their type and channel.
type Manager struct {
	handlers map[key]Handler

	// OnResult, when set, observes every dispatch outcome.
	OnResult func(cmd packets.Cmd, accepted bool)
}

func NewManager() *Manager {
	return &Manager{handlers: make(map[key]Handler)}
}

// Register adds h. Only one handler may own a (type, channel) pair.
func (m *Manager) Register(h Handler) error {
	k := key{h.PacketType(), h.Channel()}
	if _, dup := m.handlers[k]; dup {
		return fmt.Errorf("handlers: register: duplicate handler for %v on %v", k.cmd, k.ch)
	}
	m.handlers[k] = h
	return nil
}

// Len returns the number of registered handlers.
func (m *Manager) Len() int { return len(m.handlers) }

// Handle dispatches one packet. Unknown packets and handler panics count
// as rejections.
func (m *Manager) Handle(cmd packets.Cmd, ch packets.Channel, peer world.ClientID, data []byte) (accepted bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("HANDLER: PANIC handling %v from %q: %v\n%s", cmd, peer, r, debug.Stack())
			accepted = false
		}
		if m.OnResult != nil {
			m.OnResult(cmd, accepted)
		}
	}()
	h, ok := m.handlers[key{cmd, ch}]
	if !ok {
		return false
	}
	return h.HandlePacket(peer, data)
}

// HandleFrame splits a transport frame and dispatches it.
func (m *Manager) HandleFrame(peer world.ClientID, frame []byte) bool {
	cmd, ch, payload, err := packets.SplitFrame(frame)
	if err != nil {
		return false
	}
	return m.Handle(cmd, ch, peer, payload)
}

// NewDefaultManager registers the built-in handler set.
func NewDefaultManager(env *Env) *Manager {
	if env.ResumeDelay <= 0 {
		env.ResumeDelay = DefaultResumeDelay
	}
	m := NewManager()
	for _, h := range []Handler{
		&CastSpell{env: env},
		&UnpauseReq{env: env},
		&PauseReq{env: env},
		&ChatMessage{env: env},
	} {
		if err := m.Register(h); err != nil {
			// The built-in set has distinct keys.
			panic(err)
		}
	}
	return m
}
