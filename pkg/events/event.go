package events

import "github.com/crystal-mush/riftcore/pkg/world"

// EventType classifies outbound notifications for transport-specific encoding.
type EventType int

const (
	EvDebugMessage    EventType = iota // Server chat line / diagnostic
	EvChat                             // Player chat
	EvAddBuff                          // Buff attached
	EvEditBuff                         // Buff stack count changed
	EvRemoveBuff                       // Buff detached
	EvDash                             // Dash started
	EvSetAnimation                     // Animation override
	EvFaceDirection                    // Facing changed
	EvTeleport                         // Position committed without movement
	EvParticleSpawn                    // Particle created
	EvParticleDestroy                  // Particle removed
	EvVisibility                       // Per-team visibility changed
	EvUnitDeath                        // Unit died
	EvUnitSpawn                        // Unit created
	EvPause                            // Game paused
	EvResumeGame                       // Resume started/completed
	EvRaw                              // Pre-encoded payload
)

// String returns a stable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvDebugMessage:
		return "debug_message"
	case EvChat:
		return "chat"
	case EvAddBuff:
		return "add_buff"
	case EvEditBuff:
		return "edit_buff"
	case EvRemoveBuff:
		return "remove_buff"
	case EvDash:
		return "dash"
	case EvSetAnimation:
		return "set_animation"
	case EvFaceDirection:
		return "face_direction"
	case EvTeleport:
		return "teleport"
	case EvParticleSpawn:
		return "particle_spawn"
	case EvParticleDestroy:
		return "particle_destroy"
	case EvVisibility:
		return "visibility"
	case EvUnitDeath:
		return "unit_death"
	case EvUnitSpawn:
		return "unit_spawn"
	case EvPause:
		return "pause"
	case EvResumeGame:
		return "resume_game"
	case EvRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Event is a notification flowing from the simulation to clients.
// Transports decide how to encode it: WebSocket clients receive Data as
// JSON, Raw events go out as binary frames.
type Event struct {
	Type   EventType
	Client world.ClientID // Recipient (System when broadcast)
	Team   world.TeamID   // Team scope (TeamNone when not team-scoped)
	Source world.NetID    // Object the notification is about
	Text   string         // Human-readable text (debug/chat)
	Data   map[string]any // Structured payload
	Raw    []byte         // Pre-encoded payload (EvRaw)
}
