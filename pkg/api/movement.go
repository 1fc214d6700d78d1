package api

import (
	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// DashOptions shape a dash. A positive TravelTime overrides Speed.
type DashOptions struct {
	Speed             float64
	KeepFacing        bool
	Animation         string
	LeapHeight        float64
	FollowMaxDistance float64
	BackDistance      float64
	TravelTime        float64
}

// SetVisibility shows or hides obj for every registered team.
// A nil obj, including a typed nil *world.Unit or *world.Particle, is
// ignored.
func (a *API) SetVisibility(obj world.Object, visible bool) {
	switch o := obj.(type) {
	case nil:
		return
	case *world.Unit:
		if o == nil {
			return
		}
	case *world.Particle:
		if o == nil {
			return
		}
	}
	for _, team := range a.objects.Teams() {
		obj.SetVisibleByTeam(team, visible)
		a.notifier.NotifyVisibility(obj, team, visible)
	}
}

func (a *API) IsWalkable(x, y float64) bool {
	return a.nav.IsWalkable(x, y)
}

// TeleportTo moves u to the walkable point nearest (x, y), stopping any dash.
func (a *API) TeleportTo(u *world.Unit, x, y float64) {
	if u == nil {
		return
	}
	dest := a.nav.ClosestTerrainExit(world.Vec2{X: x, Y: y})
	a.CancelDash(u)
	u.TeleportTo(dest.X, dest.Y)
	a.notifier.NotifyTeleport(u)
}

// CancelDash clears the dashing state and restores the run animation.
func (a *API) CancelDash(u *world.Unit) {
	if u == nil {
		return
	}
	u.SetDashingState(false)
	a.notifier.NotifySetAnimation(u, map[string]string{packets.AnimationRun: ""})
}

// FaceDirection turns u toward dir.
func (a *API) FaceDirection(u *world.Unit, dir world.Vec2, instant bool, turnTime float64) {
	if u == nil {
		return
	}
	u.SetFacing(dir)
	a.notifier.NotifyFaceDirection(u, u.Facing(), instant, turnTime)
}

// DashToUnit dashes u toward target, tracking it while it moves.
func (a *API) DashToUnit(u, target *world.Unit, opts DashOptions) bool {
	return a.dash(u, world.UnitTarget(target), opts)
}

// DashToLocation dashes u toward the walkable point nearest (x, y).
func (a *API) DashToLocation(u *world.Unit, x, y float64, opts DashOptions) bool {
	return a.dash(u, world.PointTarget(x, y), opts)
}

func (a *API) dash(u *world.Unit, t world.Target, opts DashOptions) bool {
	if u == nil || u.IsDead() || !t.Valid() {
		return false
	}
	if opts.Animation != "" {
		a.notifier.NotifySetAnimation(u, map[string]string{packets.AnimationRun: opts.Animation})
	}
	if t.IsSimple() {
		t = world.PointTargetV(a.nav.ClosestTerrainExit(t.Position()))
	}
	if !opts.KeepFacing {
		u.SetFacing(t.Position().Sub(u.Position()))
	}
	u.DashToTarget(t, opts.Speed, opts.FollowMaxDistance, opts.BackDistance, opts.TravelTime)
	a.notifier.NotifyDash(u, packets.Dash{
		Target:            t,
		Speed:             u.Dash().Speed,
		LeapHeight:        opts.LeapHeight,
		FollowMaxDistance: opts.FollowMaxDistance,
		BackDistance:      opts.BackDistance,
		TravelTime:        opts.TravelTime,
		KeepFacing:        opts.KeepFacing,
	})
	return true
}
