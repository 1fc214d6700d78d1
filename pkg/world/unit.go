package world

import "time"

// MaxBuffSlots is the number of buff slots a unit exposes to clients.
const MaxBuffSlots = 64

// MaxSpellSlots is the number of castable spell slots on a unit.
const MaxSpellSlots = 8

// Status flags that gate casting.
const (
	StatusSilenced uint32 = 1 << iota
	StatusStunned
	StatusCastLocked
)

// Object is anything the object manager tracks by NetID.
type Object interface {
	ID() NetID
	Kind() Kind
	Team() TeamID
	Position() Vec2
	SetVisibleByTeam(team TeamID, visible bool)
	IsVisibleByTeam(team TeamID) bool
}

// base holds the fields every Object shares.
type base struct {
	id      NetID
	kind    Kind
	team    TeamID
	pos     Vec2
	visible map[TeamID]bool
}

func (b *base) ID() NetID      { return b.id }
func (b *base) Kind() Kind     { return b.kind }
func (b *base) Team() TeamID   { return b.team }
func (b *base) Position() Vec2 { return b.pos }

func (b *base) SetVisibleByTeam(team TeamID, visible bool) {
	if b.visible == nil {
		b.visible = make(map[TeamID]bool)
	}
	b.visible[team] = visible
}

// IsVisibleByTeam defaults to visible for the owning team only.
func (b *base) IsVisibleByTeam(team TeamID) bool {
	if v, ok := b.visible[team]; ok {
		return v
	}
	return team == b.team
}

// DashState is the committed forced movement of a dashing unit.
type DashState struct {
	Target            Target
	Origin            Vec2
	Speed             float64
	FollowMaxDistance float64
	BackDistance      float64
	TravelTime        float64
}

// Unit is a living, targetable simulated entity (champion, minion, ...).
// Units are mutated only on the simulation goroutine.
type Unit struct {
	base
	Name string

	facing     Vec2
	dead       bool
	killer     NetID
	status     uint32
	targetable bool
	dashing    bool
	dash       *DashState
	moveTarget *Target
	spells     [MaxSpellSlots]Spell
	buffs      [MaxBuffSlots]*Buff
	buffCount  int
}

// NewUnit creates a live, targetable unit facing +X. The NetID is normally
// assigned by ObjectManager.Spawn.
func NewUnit(id NetID, name string, kind Kind, team TeamID, pos Vec2) *Unit {
	return &Unit{
		base:       base{id: id, kind: kind, team: team, pos: pos},
		Name:       name,
		facing:     Vec2{X: 1},
		targetable: true,
	}
}

func (u *Unit) Facing() Vec2 { return u.facing }

// SetFacing stores a normalized facing direction; zero directions are ignored.
func (u *Unit) SetFacing(dir Vec2) {
	if n := dir.Normalize(); n != (Vec2{}) {
		u.facing = n
	}
}

func (u *Unit) IsDead() bool    { return u.dead }
func (u *Unit) Killer() NetID   { return u.killer }
func (u *Unit) IsDashing() bool { return u.dashing }

// Dash returns the active dash, or nil.
func (u *Unit) Dash() *DashState { return u.dash }

// IsTargetable reports whether spells may select this unit as a target.
func (u *Unit) IsTargetable() bool { return u.targetable && !u.dead }

func (u *Unit) SetTargetable(v bool) { u.targetable = v }

func (u *Unit) SetStatus(flag uint32, on bool) {
	if on {
		u.status |= flag
	} else {
		u.status &^= flag
	}
}

func (u *Unit) HasStatus(flag uint32) bool { return u.status&flag != 0 }

// CanCast reports whether the unit's own state allows casting right now.
func (u *Unit) CanCast() bool {
	return !u.dead && u.status&(StatusSilenced|StatusStunned|StatusCastLocked) == 0
}

// Spell returns the spell in slot, or nil when empty or out of range.
func (u *Unit) Spell(slot uint8) Spell {
	if int(slot) >= len(u.spells) {
		return nil
	}
	return u.spells[slot]
}

func (u *Unit) SetSpell(slot uint8, s Spell) {
	if int(slot) < len(u.spells) {
		u.spells[slot] = s
	}
}

// MoveTarget returns the player-issued movement target, or nil.
func (u *Unit) MoveTarget() *Target { return u.moveTarget }

// SetMoveTarget records a player-issued movement target. Ignored while dashing.
func (u *Unit) SetMoveTarget(t Target) {
	if u.dashing || !t.Valid() {
		return
	}
	u.moveTarget = &t
}

func (u *Unit) ClearMoveTarget() { u.moveTarget = nil }

// TeleportTo commits a new position without any movement in between.
func (u *Unit) TeleportTo(x, y float64) {
	u.pos = Vec2{X: x, Y: y}
}

// SetDashingState toggles the dashing flag. Clearing it drops the dash.
func (u *Unit) SetDashingState(dashing bool) {
	u.dashing = dashing
	if !dashing {
		u.dash = nil
	}
}

// DashToTarget commits a dash. Any earlier dash is replaced and the manual
// movement target is cleared. A positive travelTime overrides speed so the
// dash covers the current distance in exactly that many seconds.
func (u *Unit) DashToTarget(t Target, speed, followMax, backDistance, travelTime float64) {
	if travelTime > 0 {
		speed = t.Position().Dist(u.pos) / travelTime
	}
	u.dash = &DashState{
		Target:            t,
		Origin:            u.pos,
		Speed:             speed,
		FollowMaxDistance: followMax,
		BackDistance:      backDistance,
		TravelTime:        travelTime,
	}
	u.dashing = true
	u.moveTarget = nil
}

// AdvanceDash moves a dashing unit for dt and reports whether the dash is
// over. The caller ends the dash; AdvanceDash never clears it.
func (u *Unit) AdvanceDash(dt time.Duration) bool {
	d := u.dash
	if d == nil {
		return false
	}
	if tracked := d.Target.Unit(); tracked != nil {
		if tracked.IsDead() {
			return true
		}
		if d.FollowMaxDistance > 0 && tracked.Position().Dist(d.Origin) > d.FollowMaxDistance {
			return true
		}
	}
	if d.Speed <= 0 {
		return true
	}

	toDest := d.Target.Position().Sub(u.pos)
	remaining := toDest.Len() - d.BackDistance
	if remaining <= 0 {
		return true
	}
	dir := toDest.Normalize()
	step := d.Speed * dt.Seconds()
	if step >= remaining {
		u.pos = u.pos.Add(dir.Scale(remaining))
		u.SetFacing(dir)
		return true
	}
	u.pos = u.pos.Add(dir.Scale(step))
	u.SetFacing(dir)
	return false
}

// Die marks the unit dead and stops all of its movement.
func (u *Unit) Die(killer *Unit) {
	u.dead = true
	u.killer = None
	if killer != nil {
		u.killer = killer.ID()
	}
	u.dashing = false
	u.dash = nil
	u.moveTarget = nil
}

// AddBuff places b in the lowest free slot. It returns false when b is
// already attached somewhere or every slot is taken.
func (u *Unit) AddBuff(b *Buff) bool {
	if b == nil || b.Slot >= 0 {
		return false
	}
	for i, cur := range u.buffs {
		if cur == nil {
			u.buffs[i] = b
			b.Slot = i
			u.buffCount++
			return true
		}
	}
	return false
}

// RemoveBuffSlot frees the slot held by b. It returns false when b is not
// attached to this unit.
func (u *Unit) RemoveBuffSlot(b *Buff) bool {
	if !u.HasBuff(b) {
		return false
	}
	u.buffs[b.Slot] = nil
	b.Slot = -1
	u.buffCount--
	return true
}

// HasBuff reports whether b currently occupies one of this unit's slots.
func (u *Unit) HasBuff(b *Buff) bool {
	return b != nil && b.Slot >= 0 && b.Slot < len(u.buffs) && u.buffs[b.Slot] == b
}

// Buffs returns the active buffs ordered by slot.
func (u *Unit) Buffs() []*Buff {
	out := make([]*Buff, 0, u.buffCount)
	for _, b := range u.buffs {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (u *Unit) BuffCount() int { return u.buffCount }
