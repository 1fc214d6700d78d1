package api

import "github.com/crystal-mush/riftcore/pkg/world"

// AddParticle spawns a particle at (x, y) owned by champion.
func (a *API) AddParticle(champion *world.Unit, name string, x, y, size float64, bone string) *world.Particle {
	return a.AddParticleTarget(champion, name, world.PointTarget(x, y), size, bone)
}

// AddParticleTarget spawns a particle attached to target. It returns nil
// without a champion or with an invalid target.
func (a *API) AddParticleTarget(champion *world.Unit, name string, target world.Target, size float64, bone string) *world.Particle {
	if champion == nil || !target.Valid() {
		return nil
	}
	p := world.NewParticle(a.objects.NextID(), champion, target, name, size, bone)
	a.objects.Add(p)
	a.notifier.NotifyParticleSpawn(p)
	return p
}

// RemoveParticle destroys a live particle.
func (a *API) RemoveParticle(p *world.Particle) bool {
	if p == nil || a.objects.GetObjectByID(p.ID()) != world.Object(p) {
		return false
	}
	a.objects.Remove(p.ID())
	a.notifier.NotifyParticleDestroy(p)
	return true
}

// PrintChat sends a server chat line to everyone.
func (a *API) PrintChat(msg string) {
	a.notifier.NotifyDebugMessage(msg)
}

// PrintChatTo sends a server chat line to one client.
func (a *API) PrintChatTo(client world.ClientID, msg string) {
	a.notifier.NotifyDebugMessageTo(client, msg)
}

// KillUnit marks u dead, crediting killer (which may be nil).
func (a *API) KillUnit(u, killer *world.Unit) bool {
	if u == nil || u.IsDead() {
		return false
	}
	u.Die(killer)
	a.notifier.NotifyUnitDeath(u, killer)
	return true
}

// RemoveUnit strips u's buffs, announcing each removal, then unregisters
// it. Pending expiry timers for those buffs become no-ops.
func (a *API) RemoveUnit(u *world.Unit) {
	if u == nil {
		return
	}
	for _, b := range u.Buffs() {
		a.RemoveBuff(b)
	}
	a.objects.Remove(u.ID())
}

// SpawnUnit registers a new unit and announces it.
func (a *API) SpawnUnit(name string, kind world.Kind, team world.TeamID, pos world.Vec2) *world.Unit {
	u := a.objects.SpawnUnit(name, kind, team, a.nav.ClosestTerrainExit(pos))
	a.notifier.NotifyUnitSpawn(u)
	return u
}
