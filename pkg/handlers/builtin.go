package handlers

import (
	"strings"

	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// CastSpell forwards a cast request to the spell in the requested slot.
type CastSpell struct {
	env *Env
}

func (h *CastSpell) PacketType() packets.Cmd  { return packets.CmdCastSpell }
func (h *CastSpell) Channel() packets.Channel { return packets.ChannelC2S }

func (h *CastSpell) HandlePacket(peer world.ClientID, data []byte) bool {
	req, err := packets.ReadCastSpellRequest(data)
	if err != nil {
		return false
	}
	champ := h.env.Players.Champion(peer)
	if champ == nil || !champ.CanCast() || h.env.Pause.IsPaused() {
		return false
	}
	spell := champ.Spell(req.SpellSlot)
	if spell == nil {
		return false
	}
	var target *world.Unit
	if u := h.env.API.Objects().GetUnit(world.NetID(req.TargetNetID)); u != nil && u.IsTargetable() {
		target = u
	}
	return spell.Cast(float64(req.X), float64(req.Y), float64(req.X2), float64(req.Y2), target)
}

// UnpauseReq starts the resume countdown of a paused game.
type UnpauseReq struct {
	env     *Env
	pending bool
}

func (h *UnpauseReq) PacketType() packets.Cmd  { return packets.CmdUnpauseGame }
func (h *UnpauseReq) Channel() packets.Channel { return packets.ChannelC2S }

// HandlePacket accepts a request from a known client or from the system
// sender. Only one countdown runs at a time.
func (h *UnpauseReq) HandlePacket(peer world.ClientID, data []byte) bool {
	if !h.env.Pause.IsPaused() || h.pending {
		return false
	}
	var unpauser *world.Unit
	if peer != world.System {
		info := h.env.Players.PeerInfo(peer)
		if info == nil {
			return false
		}
		unpauser = info.Champion
	}

	notifier := h.env.API.Notifier()
	notifier.NotifyResumeGame(unpauser, false)
	h.pending = true
	h.env.SystemTimers.AfterLabeled(h.env.ResumeDelay, "resume game", func() {
		h.pending = false
		notifier.NotifyResumeGame(unpauser, true)
		h.env.Pause.Unpause()
	})
	return true
}

// PauseReq pauses a running game on behalf of a champion.
type PauseReq struct {
	env *Env
}

func (h *PauseReq) PacketType() packets.Cmd  { return packets.CmdPauseGame }
func (h *PauseReq) Channel() packets.Channel { return packets.ChannelC2S }

func (h *PauseReq) HandlePacket(peer world.ClientID, data []byte) bool {
	if h.env.Pause.IsPaused() {
		return false
	}
	var pauser *world.Unit
	if peer != world.System {
		pauser = h.env.Players.Champion(peer)
		if pauser == nil {
			return false
		}
	}
	h.env.Pause.Pause()
	h.env.API.Notifier().NotifyPause(pauser)
	return true
}

// ChatMessage relays chat, diverting command-prefixed lines to the
// command dispatcher.
type ChatMessage struct {
	env *Env
}

func (h *ChatMessage) PacketType() packets.Cmd  { return packets.CmdChatBoxMessage }
func (h *ChatMessage) Channel() packets.Channel { return packets.ChannelChat }

func (h *ChatMessage) HandlePacket(peer world.ClientID, data []byte) bool {
	text := strings.TrimSpace(packets.ReadChatMessage(data))
	if text == "" {
		return false
	}
	info := h.env.Players.PeerInfo(peer)
	if info == nil {
		return false
	}
	if h.env.Chat != nil && h.env.ChatPrefix != "" && strings.HasPrefix(text, h.env.ChatPrefix) {
		return h.env.Chat.Execute(peer, text)
	}
	h.env.API.Notifier().NotifyChat(peer, info.Name, text)
	return true
}
