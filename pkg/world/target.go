package world

type targetKind uint8

const (
	targetInvalid targetKind = iota
	targetPoint
	targetUnit
)

// Target is a resolved destination: either a fixed point or a live unit.
// Exactly one case holds for any Target built by PointTarget or UnitTarget;
// the zero Target is invalid.
type Target struct {
	kind  targetKind
	point Vec2
	unit  *Unit
}

// PointTarget captures x, y as an immutable destination.
func PointTarget(x, y float64) Target {
	return Target{kind: targetPoint, point: Vec2{X: x, Y: y}}
}

// PointTargetV captures p as an immutable destination.
func PointTargetV(p Vec2) Target {
	return Target{kind: targetPoint, point: p}
}

// UnitTarget tracks u. Position follows the unit as it moves.
// A nil unit yields the invalid Target.
func UnitTarget(u *Unit) Target {
	if u == nil {
		return Target{}
	}
	return Target{kind: targetUnit, unit: u}
}

// Valid reports whether t was built by one of the constructors.
func (t Target) Valid() bool { return t.kind != targetInvalid }

// IsSimple reports whether t is a fixed point.
func (t Target) IsSimple() bool { return t.kind == targetPoint }

// Unit returns the tracked unit, or nil for point targets.
func (t Target) Unit() *Unit {
	if t.kind == targetUnit {
		return t.unit
	}
	return nil
}

// Position returns the captured point, or the tracked unit's current position.
func (t Target) Position() Vec2 {
	switch t.kind {
	case targetPoint:
		return t.point
	case targetUnit:
		return t.unit.Position()
	default:
		return Vec2{}
	}
}
