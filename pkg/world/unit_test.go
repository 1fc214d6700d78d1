package world

import (
	"testing"
	"time"
)

func TestBuffSlotsUnique(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	a := NewBuff("A", time.Second, 1, BuffAura, u, nil)
	b := NewBuff("B", time.Second, 1, BuffAura, u, nil)
	c := NewBuff("C", time.Second, 1, BuffAura, u, nil)

	for _, buff := range []*Buff{a, b, c} {
		if !u.AddBuff(buff) {
			t.Fatalf("AddBuff(%s) failed", buff.Name)
		}
	}
	if a.Slot != 0 || b.Slot != 1 || c.Slot != 2 {
		t.Fatalf("unexpected slots %d %d %d", a.Slot, b.Slot, c.Slot)
	}

	if !u.RemoveBuffSlot(b) {
		t.Fatal("RemoveBuffSlot(b) failed")
	}
	if b.Slot != -1 {
		t.Errorf("removed buff should be detached, slot=%d", b.Slot)
	}

	// The freed slot is reused by the next buff.
	d := NewBuff("D", time.Second, 1, BuffAura, u, nil)
	u.AddBuff(d)
	if d.Slot != 1 {
		t.Errorf("expected reused slot 1, got %d", d.Slot)
	}

	seen := make(map[int]bool)
	for _, buff := range u.Buffs() {
		if seen[buff.Slot] {
			t.Fatalf("slot %d used twice", buff.Slot)
		}
		seen[buff.Slot] = true
	}
	if u.BuffCount() != 3 {
		t.Errorf("expected 3 buffs, got %d", u.BuffCount())
	}
}

func TestAddBuffTwiceRejected(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	b := NewBuff("A", time.Second, 1, BuffAura, u, nil)
	if !u.AddBuff(b) {
		t.Fatal("first AddBuff failed")
	}
	if u.AddBuff(b) {
		t.Error("second AddBuff of the same buff should fail")
	}
	if u.RemoveBuffSlot(b) != true || u.RemoveBuffSlot(b) != false {
		t.Error("RemoveBuffSlot should succeed once")
	}
}

func TestBuffSlotsExhausted(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	for i := 0; i < MaxBuffSlots; i++ {
		if !u.AddBuff(NewBuff("x", 0, 1, BuffInternal, u, nil)) {
			t.Fatalf("AddBuff %d failed", i)
		}
	}
	if u.AddBuff(NewBuff("overflow", 0, 1, BuffInternal, u, nil)) {
		t.Error("expected AddBuff to fail when all slots are used")
	}
}

func TestDashClearsMoveTarget(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	u.SetMoveTarget(PointTarget(50, 50))
	if u.MoveTarget() == nil {
		t.Fatal("move target not set")
	}
	u.DashToTarget(PointTarget(100, 0), 500, 0, 0, 0)
	if !u.IsDashing() {
		t.Error("unit should be dashing")
	}
	if u.MoveTarget() != nil {
		t.Error("dash should clear the move target")
	}

	// Manual movement is ignored while dashing.
	u.SetMoveTarget(PointTarget(10, 10))
	if u.MoveTarget() != nil {
		t.Error("move target accepted while dashing")
	}
}

func TestAdvanceDashToPoint(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	u.DashToTarget(PointTarget(100, 0), 100, 0, 0, 0)

	if u.AdvanceDash(500 * time.Millisecond) {
		t.Fatal("dash finished too early")
	}
	if got := u.Position().X; got < 49.9 || got > 50.1 {
		t.Errorf("expected x=50 after half a second, got %v", got)
	}
	if !u.AdvanceDash(time.Second) {
		t.Fatal("dash should be finished")
	}
	if u.Position() != (Vec2{X: 100}) {
		t.Errorf("expected to land on target, got %+v", u.Position())
	}
}

func TestAdvanceDashTravelTime(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	u.DashToTarget(PointTarget(0, 300), 1, 0, 0, 0.5)
	if u.Dash().Speed != 600 {
		t.Fatalf("travel time should override speed, got %v", u.Dash().Speed)
	}
	if !u.AdvanceDash(500 * time.Millisecond) {
		t.Error("dash should finish after its travel time")
	}
}

func TestAdvanceDashTracksUnit(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	enemy := NewUnit(2, "Minion", KindMinion, TeamPurple, Vec2{X: 100})
	u.DashToTarget(UnitTarget(enemy), 100, 0, 10, 0)

	enemy.TeleportTo(200, 0)
	u.AdvanceDash(time.Second)
	if got := u.Position().X; got < 99.9 || got > 100.1 {
		t.Errorf("expected x=100, got %v", got)
	}

	enemy.Die(nil)
	if !u.AdvanceDash(time.Millisecond) {
		t.Error("dash toward a dead unit should finish")
	}
}

func TestAdvanceDashFollowLimit(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	enemy := NewUnit(2, "Minion", KindMinion, TeamPurple, Vec2{X: 100})
	u.DashToTarget(UnitTarget(enemy), 100, 150, 0, 0)

	enemy.TeleportTo(400, 0)
	if !u.AdvanceDash(time.Millisecond) {
		t.Error("dash should stop once the target leaves the follow distance")
	}
}

func TestCanCast(t *testing.T) {
	u := NewUnit(1, "Annie", KindChampion, TeamBlue, Vec2{})
	if !u.CanCast() {
		t.Fatal("fresh unit should be able to cast")
	}
	u.SetStatus(StatusSilenced, true)
	if u.CanCast() {
		t.Error("silenced unit should not cast")
	}
	u.SetStatus(StatusSilenced, false)
	u.Die(nil)
	if u.CanCast() {
		t.Error("dead unit should not cast")
	}
}
