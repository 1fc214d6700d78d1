package world

import "time"

// Buff is a named, timed, stackable modifier attached to a unit.
// Slot is -1 while the buff is not attached.
type Buff struct {
	Name     string
	Duration time.Duration
	Stacks   int
	Type     BuffType
	Target   *Unit
	Source   *Unit
	Slot     int
}

// NewBuff creates a detached buff. A nil source means the target buffs itself.
func NewBuff(name string, duration time.Duration, stacks int, typ BuffType, target, source *Unit) *Buff {
	if source == nil {
		source = target
	}
	if stacks < 1 {
		stacks = 1
	}
	return &Buff{
		Name:     name,
		Duration: duration,
		Stacks:   stacks,
		Type:     typ,
		Target:   target,
		Source:   source,
		Slot:     -1,
	}
}

// SetStacks changes the stack count, never below one.
func (b *Buff) SetStacks(n int) {
	if n < 1 {
		n = 1
	}
	b.Stacks = n
}

// Attached reports whether the buff sits in its target's slot table.
func (b *Buff) Attached() bool {
	return b.Target != nil && b.Target.HasBuff(b)
}
