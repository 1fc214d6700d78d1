package world

// Spell is a castable ability bound to a unit's spell slot. The spell owns
// its own legality checks (cooldown, resources); callers only forward the
// request and report its result.
type Spell interface {
	Cast(x, y, x2, y2 float64, target *Unit) bool
}

// Particle is a client-side visual effect anchored to a champion and a target.
type Particle struct {
	base
	Owner  *Unit
	Target Target
	Name   string
	Size   float64
	Bone   string
}

// NewParticle creates a particle owned by owner's team at target's position.
func NewParticle(id NetID, owner *Unit, target Target, name string, size float64, bone string) *Particle {
	var team TeamID
	if owner != nil {
		team = owner.Team()
	}
	return &Particle{
		base:   base{id: id, kind: KindParticle, team: team, pos: target.Position()},
		Owner:  owner,
		Target: target,
		Name:   name,
		Size:   size,
		Bone:   bone,
	}
}
