package api

import (
	"time"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// AddBuff attaches a new buff to onto and announces it. It returns nil,
// and announces nothing, when onto is nil or has no free slot.
func (a *API) AddBuff(name string, duration time.Duration, stacks int, typ world.BuffType, onto, from *world.Unit) *world.Buff {
	if onto == nil {
		return nil
	}
	b := world.NewBuff(name, duration, stacks, typ, onto, from)
	if !onto.AddBuff(b) {
		return nil
	}
	a.notifier.NotifyAddBuff(b)
	return b
}

// AddBuffSelf is AddBuff with the target as its own source.
func (a *API) AddBuffSelf(name string, duration time.Duration, stacks int, typ world.BuffType, onto *world.Unit) *world.Buff {
	return a.AddBuff(name, duration, stacks, typ, onto, onto)
}

// AddBuffWithAutoExpire adds a buff and, when removeAfter >= 0, schedules
// its removal on the game timers.
func (a *API) AddBuffWithAutoExpire(name string, duration time.Duration, stacks int, typ world.BuffType, onto, from *world.Unit, removeAfter time.Duration) *world.Buff {
	b := a.AddBuff(name, duration, stacks, typ, onto, from)
	if b != nil && removeAfter >= 0 {
		a.timers.AfterLabeled(removeAfter, "expire "+name, func() { a.RemoveBuff(b) })
	}
	return b
}

// EditBuff changes the stack count of an attached buff.
func (a *API) EditBuff(b *world.Buff, stacks int) bool {
	if b == nil || !b.Attached() {
		return false
	}
	b.SetStacks(stacks)
	a.notifier.NotifyEditBuff(b)
	return true
}

// RemoveBuff announces the removal and frees the buff's slot. Removing a
// buff that is no longer attached, or whose target has left the world,
// does nothing, so an expiry timer racing an explicit removal is harmless.
func (a *API) RemoveBuff(b *world.Buff) bool {
	if b == nil || !b.Attached() || a.objects.GetUnit(b.Target.ID()) != b.Target {
		return false
	}
	a.notifier.NotifyRemoveBuff(b.Target, b.Name, b.Slot)
	b.Target.RemoveBuffSlot(b)
	return true
}
