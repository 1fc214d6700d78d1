package spells

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/crystal-mush/riftcore/pkg/api"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// Definition is a named script plus its base cooldown.
type Definition struct {
	Cooldown time.Duration
	Script   Script
}

// Library holds the spell definitions champions can be given.
var Library = map[string]Definition{
	"DashStrike": {Cooldown: 8 * time.Second, Script: dashStrike},
	"Empower":    {Cooldown: 12 * time.Second, Script: empower},
	"Blink":      {Cooldown: 15 * time.Second, Script: blink},
}

// Names returns the library's spell names, sorted.
func Names() []string {
	names := make([]string, 0, len(Library))
	for n := range Library {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Bind looks up name in the library and places it in owner's slot.
func Bind(a *api.API, clock Clock, owner *world.Unit, slot uint8, name string) (*Spell, error) {
	def, ok := Library[name]
	if !ok {
		return nil, fmt.Errorf("spells: bind: unknown spell %q", name)
	}
	if int(slot) >= world.MaxSpellSlots {
		return nil, fmt.Errorf("spells: bind: slot %d out of range", slot)
	}
	s := New(a, clock, owner, name, def.Cooldown, def.Script)
	owner.SetSpell(slot, s)
	return s, nil
}

const (
	dashStrikeSpeed = 1200
	dashStrikeRange = 600
	empowerDuration = 4 * time.Second
	blinkRange      = 400
)

// dashStrike leaps at a targeted unit, or toward the cursor when no unit
// was picked, and leaves a trail particle.
func dashStrike(c Cast) bool {
	opts := api.DashOptions{Speed: dashStrikeSpeed, Animation: "Spell1", LeapHeight: 40}
	if c.Target != nil {
		if c.Target.Position().Dist(c.Owner.Position()) > dashStrikeRange {
			return false
		}
		opts.BackDistance = 80
		opts.FollowMaxDistance = dashStrikeRange * 1.5
		if !c.API.DashToUnit(c.Owner, c.Target, opts) {
			return false
		}
	} else {
		dest, ok := cursorWithin(c.Owner.Position(), c.X, c.Y, dashStrikeRange)
		if !ok || !c.API.DashToLocation(c.Owner, dest.X, dest.Y, opts) {
			return false
		}
	}
	c.API.AddParticleTarget(c.Owner, "dashstrike_trail", world.UnitTarget(c.Owner), 1, "root")
	return true
}

// empower grants a self buff that stacks with level and expires on its own.
func empower(c Cast) bool {
	b := c.API.AddBuffWithAutoExpire("Empower", empowerDuration, c.Level, world.BuffCombatEnchancer,
		c.Owner, c.Owner, empowerDuration)
	return b != nil
}

// blink teleports toward the cursor, capped at blinkRange.
func blink(c Cast) bool {
	from := c.Owner.Position()
	dest, ok := cursorWithin(from, c.X, c.Y, blinkRange)
	if !ok {
		return false
	}
	c.API.AddParticle(c.Owner, "blink_out", from.X, from.Y, 1, "")
	c.API.TeleportTo(c.Owner, dest.X, dest.Y)
	return true
}

// cursorWithin pulls the cursor (x, y) back to at most rng from origin.
// A non-finite cursor is rejected.
func cursorWithin(origin world.Vec2, x, y, rng float64) (world.Vec2, bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return world.Vec2{}, false
	}
	dir := world.Vec2{X: x, Y: y}.Sub(origin)
	if dir.Len() > rng {
		dir = dir.Normalize().Scale(rng)
	}
	return origin.Add(dir), true
}
