package world

import "math"

// NetID is the network identity of a simulated object. Clients address
// every unit, particle and buff owner by NetID.
type NetID uint32

// None is the zero NetID; no object ever carries it.
const None NetID = 0

// ClientID identifies a connected client session. The empty ClientID stands
// for the server itself (system-initiated actions).
type ClientID string

// System is the sender used for actions that no client initiated.
const System ClientID = ""

// TeamID identifies a team registered in the simulation.
type TeamID int

const (
	TeamNone    TeamID = 0
	TeamBlue    TeamID = 100
	TeamPurple  TeamID = 200
	TeamNeutral TeamID = 300
)

func (t TeamID) String() string {
	switch t {
	case TeamBlue:
		return "BLUE"
	case TeamPurple:
		return "PURPLE"
	case TeamNeutral:
		return "NEUTRAL"
	default:
		return "NONE"
	}
}

// Kind classifies a simulated object.
type Kind int

const (
	KindChampion Kind = iota
	KindMinion
	KindTurret
	KindMonster
	KindParticle
)

func (k Kind) String() string {
	switch k {
	case KindChampion:
		return "champion"
	case KindMinion:
		return "minion"
	case KindTurret:
		return "turret"
	case KindMonster:
		return "monster"
	case KindParticle:
		return "particle"
	default:
		return "unknown"
	}
}

// BuffType is the client-facing classification of a buff.
type BuffType int

const (
	BuffInternal BuffType = iota
	BuffAura
	BuffCombatEnchancer
	BuffCombatDehancer
	BuffSpellShield
	BuffStun
	BuffInvisibility
	BuffSilence
	BuffTaunt
	BuffPolymorph
	BuffSlow
	BuffSnare
	BuffDamage
	BuffHeal
	BuffHaste
	BuffSpellImmunity
	BuffPhysicalImmunity
	BuffInvulnerability
	BuffSleep
	BuffNearSight
	BuffFrenzy
	BuffFear
	BuffCharm
	BuffPoison
	BuffSuppression
	BuffBlind
	BuffCounter
	BuffShred
	BuffFlee
	BuffKnockup
	BuffKnockback
	BuffDisarm
)

var buffTypeNames = [...]string{
	"internal", "aura", "combat_enchancer", "combat_dehancer", "spell_shield",
	"stun", "invisibility", "silence", "taunt", "polymorph", "slow", "snare",
	"damage", "heal", "haste", "spell_immunity", "physical_immunity",
	"invulnerability", "sleep", "near_sight", "frenzy", "fear", "charm",
	"poison", "suppression", "blind", "counter", "shred", "flee", "knockup",
	"knockback", "disarm",
}

func (t BuffType) String() string {
	if t < 0 || int(t) >= len(buffTypeNames) {
		return "unknown"
	}
	return buffTypeNames[t]
}

// Vec2 is a point or direction on the map plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v*f.
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// Normalize returns v scaled to unit length, or the zero vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}
