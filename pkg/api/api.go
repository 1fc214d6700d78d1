// Package api is the scripting surface gameplay code uses to change shared
// game state. Every mutating call is paired with the notification that
// describes it, so clients never see state they were not told about.
//
// An API is bound to one simulation and must only be used from that
// simulation's goroutine.
package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/sched"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// Navigator answers terrain queries.
type Navigator interface {
	IsWalkable(x, y float64) bool
	ClosestTerrainExit(p world.Vec2) world.Vec2
}

// Notifier publishes state changes to clients.
type Notifier interface {
	NotifyAddBuff(b *world.Buff)
	NotifyEditBuff(b *world.Buff)
	NotifyRemoveBuff(target *world.Unit, name string, slot int)
	NotifyVisibility(obj world.Object, team world.TeamID, visible bool)
	NotifyTeleport(u *world.Unit)
	NotifySetAnimation(u *world.Unit, animations map[string]string)
	NotifyFaceDirection(u *world.Unit, dir world.Vec2, instant bool, turnTime float64)
	NotifyDash(u *world.Unit, d packets.Dash)
	NotifyParticleSpawn(p *world.Particle)
	NotifyParticleDestroy(p *world.Particle)
	NotifyDebugMessage(msg string)
	NotifyDebugMessageTo(client world.ClientID, msg string)
	NotifyChat(from world.ClientID, name, msg string)
	NotifyUnitDeath(u, killer *world.Unit)
	NotifyUnitSpawn(u *world.Unit)
	NotifyPause(by *world.Unit)
	NotifyResumeGame(by *world.Unit, completed bool)
	BroadcastRaw(payload []byte)
}

// Deps are the collaborators an API operates on.
type Deps struct {
	Objects  *world.ObjectManager
	Nav      Navigator
	Timers   *sched.Scheduler
	Notifier Notifier
}

// API is the mutation chokepoint for scripts, commands, and handlers.
type API struct {
	objects  *world.ObjectManager
	nav      Navigator
	timers   *sched.Scheduler
	notifier Notifier

	// Debug enables LogDebug output.
	Debug bool
}

// New validates deps and builds an API.
func New(d Deps) (*API, error) {
	switch {
	case d.Objects == nil:
		return nil, errors.New("api: new: nil object manager")
	case d.Nav == nil:
		return nil, errors.New("api: new: nil navigator")
	case d.Timers == nil:
		return nil, errors.New("api: new: nil timers")
	case d.Notifier == nil:
		return nil, errors.New("api: new: nil notifier")
	}
	return &API{objects: d.Objects, nav: d.Nav, timers: d.Timers, notifier: d.Notifier}, nil
}

// Objects returns the object registry.
func (a *API) Objects() *world.ObjectManager { return a.objects }

// Notifier returns the notifier used for outbound messages.
func (a *API) Notifier() Notifier { return a.notifier }

// SetNavigator swaps the terrain used by later calls.
func (a *API) SetNavigator(n Navigator) {
	if n != nil {
		a.nav = n
	}
}

// CreateTimer runs fn once after d of game time. Game time does not pass
// while the simulation is paused.
func (a *API) CreateTimer(d time.Duration, fn func()) *sched.Task {
	return a.timers.AfterLabeled(d, "script timer", fn)
}

// GetUnitsInRange returns the units within rng of t.
func (a *API) GetUnitsInRange(t world.Target, rng float64, aliveOnly bool) []*world.Unit {
	return a.objects.GetUnitsInRange(t, rng, aliveOnly)
}

// GetChampionsInRange returns the champions within rng of t.
func (a *API) GetChampionsInRange(t world.Target, rng float64, aliveOnly bool) []*world.Unit {
	return a.objects.GetChampionsInRange(t, rng, aliveOnly)
}

// GetTeams returns every team registered in the simulation.
func (a *API) GetTeams() []world.TeamID {
	return a.objects.Teams()
}

// SendPacket broadcasts a pre-encoded server-to-client payload.
func (a *API) SendPacket(payload []byte) {
	a.notifier.BroadcastRaw(payload)
}

// SendPacketHex decodes a hex dump such as "4A 00 01" and broadcasts it.
func (a *API) SendPacketHex(dump string) error {
	payload, err := hex.DecodeString(strings.Join(strings.Fields(dump), ""))
	if err != nil {
		return fmt.Errorf("api: send packet: %w", err)
	}
	a.SendPacket(payload)
	return nil
}

func (a *API) LogInfo(format string, args ...any) {
	log.Printf("SCRIPT: "+format, args...)
}

func (a *API) LogDebug(format string, args ...any) {
	if a.Debug {
		log.Printf("SCRIPT DEBUG: "+format, args...)
	}
}
