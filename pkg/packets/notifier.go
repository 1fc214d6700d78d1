package packets

import (
	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// Dash carries the client-visible parameters of a committed dash.
type Dash struct {
	Target            world.Target
	Speed             float64
	LeapHeight        float64
	FollowMaxDistance float64
	BackDistance      float64
	TravelTime        float64
	KeepFacing        bool
}

// AnimationRun is the default movement animation slot.
const AnimationRun = "RUN"

// BusNotifier turns simulation notifications into bus events. Every
// method emits exactly one event.
type BusNotifier struct {
	bus *events.Bus
}

// NewBusNotifier creates a notifier publishing on bus.
func NewBusNotifier(bus *events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func unitRef(u *world.Unit) uint32 {
	if u == nil {
		return uint32(world.None)
	}
	return uint32(u.ID())
}

func targetData(t world.Target) map[string]any {
	p := t.Position()
	data := map[string]any{"x": p.X, "y": p.Y}
	if u := t.Unit(); u != nil {
		data["unit"] = unitRef(u)
	}
	return data
}

func (n *BusNotifier) NotifyAddBuff(b *world.Buff) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvAddBuff,
		Source: b.Target.ID(),
		Data: map[string]any{
			"name":     b.Name,
			"slot":     b.Slot,
			"stacks":   b.Stacks,
			"type":     b.Type.String(),
			"duration": b.Duration.Seconds(),
			"source":   unitRef(b.Source),
		},
	})
}

func (n *BusNotifier) NotifyEditBuff(b *world.Buff) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvEditBuff,
		Source: b.Target.ID(),
		Data:   map[string]any{"name": b.Name, "slot": b.Slot, "stacks": b.Stacks},
	})
}

func (n *BusNotifier) NotifyRemoveBuff(target *world.Unit, name string, slot int) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvRemoveBuff,
		Source: target.ID(),
		Data:   map[string]any{"name": name, "slot": slot},
	})
}

// NotifyVisibility goes to the affected team only.
func (n *BusNotifier) NotifyVisibility(obj world.Object, team world.TeamID, visible bool) {
	n.bus.EmitToTeam(team, events.Event{
		Type:   events.EvVisibility,
		Source: obj.ID(),
		Data:   map[string]any{"visible": visible, "team": team.String()},
	})
}

func (n *BusNotifier) NotifyTeleport(u *world.Unit) {
	p := u.Position()
	n.bus.Broadcast(events.Event{
		Type:   events.EvTeleport,
		Source: u.ID(),
		Data:   map[string]any{"x": p.X, "y": p.Y},
	})
}

func (n *BusNotifier) NotifySetAnimation(u *world.Unit, animations map[string]string) {
	anims := make(map[string]any, len(animations))
	for k, v := range animations {
		anims[k] = v
	}
	n.bus.Broadcast(events.Event{
		Type:   events.EvSetAnimation,
		Source: u.ID(),
		Data:   anims,
	})
}

func (n *BusNotifier) NotifyFaceDirection(u *world.Unit, dir world.Vec2, instant bool, turnTime float64) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvFaceDirection,
		Source: u.ID(),
		Data:   map[string]any{"x": dir.X, "y": dir.Y, "instant": instant, "turn_time": turnTime},
	})
}

func (n *BusNotifier) NotifyDash(u *world.Unit, d Dash) {
	data := targetData(d.Target)
	data["speed"] = d.Speed
	data["leap_height"] = d.LeapHeight
	data["follow_max_distance"] = d.FollowMaxDistance
	data["back_distance"] = d.BackDistance
	data["travel_time"] = d.TravelTime
	data["keep_facing"] = d.KeepFacing
	n.bus.Broadcast(events.Event{Type: events.EvDash, Source: u.ID(), Data: data})
}

func (n *BusNotifier) NotifyParticleSpawn(p *world.Particle) {
	data := targetData(p.Target)
	data["name"] = p.Name
	data["size"] = p.Size
	data["bone"] = p.Bone
	data["owner"] = unitRef(p.Owner)
	n.bus.Broadcast(events.Event{Type: events.EvParticleSpawn, Source: p.ID(), Data: data})
}

func (n *BusNotifier) NotifyParticleDestroy(p *world.Particle) {
	n.bus.Broadcast(events.Event{Type: events.EvParticleDestroy, Source: p.ID()})
}

// NotifyDebugMessage broadcasts a server chat line.
func (n *BusNotifier) NotifyDebugMessage(msg string) {
	n.bus.Broadcast(events.Event{Type: events.EvDebugMessage, Text: msg})
}

// NotifyDebugMessageTo sends a server chat line to one client.
func (n *BusNotifier) NotifyDebugMessageTo(client world.ClientID, msg string) {
	n.bus.EmitToClient(client, events.Event{Type: events.EvDebugMessage, Text: msg})
}

func (n *BusNotifier) NotifyChat(from world.ClientID, name, msg string) {
	n.bus.Broadcast(events.Event{
		Type: events.EvChat,
		Text: msg,
		Data: map[string]any{"from": string(from), "name": name},
	})
}

func (n *BusNotifier) NotifyUnitDeath(u, killer *world.Unit) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvUnitDeath,
		Source: u.ID(),
		Data:   map[string]any{"killer": unitRef(killer)},
	})
}

func (n *BusNotifier) NotifyUnitSpawn(u *world.Unit) {
	p := u.Position()
	n.bus.Broadcast(events.Event{
		Type:   events.EvUnitSpawn,
		Source: u.ID(),
		Data: map[string]any{
			"name": u.Name,
			"kind": u.Kind().String(),
			"team": u.Team().String(),
			"x":    p.X,
			"y":    p.Y,
		},
	})
}

func (n *BusNotifier) NotifyPause(by *world.Unit) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvPause,
		Source: world.NetID(unitRef(by)),
	})
}

// NotifyResumeGame reports a resume countdown starting or completing.
func (n *BusNotifier) NotifyResumeGame(by *world.Unit, completed bool) {
	n.bus.Broadcast(events.Event{
		Type:   events.EvResumeGame,
		Source: world.NetID(unitRef(by)),
		Data:   map[string]any{"completed": completed},
	})
}

// BroadcastRaw sends a pre-encoded S2C payload to every client.
func (n *BusNotifier) BroadcastRaw(payload []byte) {
	n.bus.Broadcast(events.Event{
		Type: events.EvRaw,
		Raw:  append([]byte(nil), payload...),
	})
}
