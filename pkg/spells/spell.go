// Package spells binds scripted abilities to unit spell slots.
package spells

import (
	"time"

	"github.com/crystal-mush/riftcore/pkg/api"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// Clock reports the current game time.
type Clock interface {
	Now() time.Duration
}

// Cast is the context a script runs with.
type Cast struct {
	API    *api.API
	Owner  *world.Unit
	Level  int
	X, Y   float64
	X2, Y2 float64
	Target *world.Unit
}

// Script performs a spell's effect and reports whether it went off.
type Script func(c Cast) bool

// Spell is a scripted ability with a cooldown measured on the game clock.
type Spell struct {
	Name     string
	Level    int
	Cooldown time.Duration

	owner   *world.Unit
	api     *api.API
	clock   Clock
	script  Script
	readyAt time.Duration
	casts   int
}

// New creates a level 1 spell owned by owner.
func New(a *api.API, clock Clock, owner *world.Unit, name string, cooldown time.Duration, script Script) *Spell {
	return &Spell{
		Name:     name,
		Level:    1,
		Cooldown: cooldown,
		owner:    owner,
		api:      a,
		clock:    clock,
		script:   script,
	}
}

// Ready reports whether the cooldown has elapsed.
func (s *Spell) Ready() bool {
	return s.clock.Now() >= s.readyAt
}

// Cast runs the script when the spell is off cooldown. A script that
// declines does not start the cooldown.
func (s *Spell) Cast(x, y, x2, y2 float64, target *world.Unit) bool {
	if s.script == nil || !s.Ready() {
		return false
	}
	ok := s.script(Cast{
		API:    s.api,
		Owner:  s.owner,
		Level:  s.Level,
		X:      x,
		Y:      y,
		X2:     x2,
		Y2:     y2,
		Target: target,
	})
	if !ok {
		return false
	}
	s.readyAt = s.clock.Now() + s.Cooldown
	s.casts++
	return true
}

// Casts returns how many times the spell went off.
func (s *Spell) Casts() int { return s.casts }
