package packets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Cmd identifies a packet type.
type Cmd uint8

const (
	CmdCastSpell      Cmd = 0x9A
	CmdPauseGame      Cmd = 0x4A
	CmdUnpauseGame    Cmd = 0x54
	CmdChatBoxMessage Cmd = 0x68
)

func (c Cmd) String() string {
	switch c {
	case CmdCastSpell:
		return "CAST_SPELL"
	case CmdPauseGame:
		return "PAUSE_GAME"
	case CmdUnpauseGame:
		return "UNPAUSE_GAME"
	case CmdChatBoxMessage:
		return "CHAT_BOX_MESSAGE"
	default:
		return fmt.Sprintf("CMD_%02X", uint8(c))
	}
}

// Channel is the logical stream a packet travels on.
type Channel uint8

const (
	ChannelC2S Channel = iota + 1
	ChannelS2C
	ChannelChat
)

func (c Channel) String() string {
	switch c {
	case ChannelC2S:
		return "C2S"
	case ChannelS2C:
		return "S2C"
	case ChannelChat:
		return "CHAT"
	default:
		return "UNKNOWN"
	}
}

// HeaderSize is the length of the frame header: command, channel.
const HeaderSize = 2

var (
	ErrShortFrame   = errors.New("packets: frame shorter than header")
	ErrShortPayload = errors.New("packets: payload too short")
)

// SplitFrame separates a transport frame into its header and payload.
// The payload aliases frame.
func SplitFrame(frame []byte) (Cmd, Channel, []byte, error) {
	if len(frame) < HeaderSize {
		return 0, 0, nil, ErrShortFrame
	}
	return Cmd(frame[0]), Channel(frame[1]), frame[HeaderSize:], nil
}

// EncodeFrame prepends the frame header to payload.
func EncodeFrame(cmd Cmd, ch Channel, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(cmd)
	out[1] = byte(ch)
	copy(out[HeaderSize:], payload)
	return out
}

// CastSpellRequest is the decoded body of a CAST_SPELL packet.
type CastSpellRequest struct {
	TargetNetID uint32
	SpellSlot   uint8
	X, Y        float32
	X2, Y2      float32
}

// castSpellSize is netid(4) + slot(1) + four float32 coordinates.
const castSpellSize = 4 + 1 + 4*4

// ReadCastSpellRequest decodes a little-endian cast request.
func ReadCastSpellRequest(data []byte) (CastSpellRequest, error) {
	var req CastSpellRequest
	if len(data) < castSpellSize {
		return req, fmt.Errorf("packets: cast spell: %w (%d bytes)", ErrShortPayload, len(data))
	}
	le := binary.LittleEndian
	req.TargetNetID = le.Uint32(data[0:4])
	req.SpellSlot = data[4]
	req.X = math.Float32frombits(le.Uint32(data[5:9]))
	req.Y = math.Float32frombits(le.Uint32(data[9:13]))
	req.X2 = math.Float32frombits(le.Uint32(data[13:17]))
	req.Y2 = math.Float32frombits(le.Uint32(data[17:21]))
	return req, nil
}

// Encode writes the request in the layout ReadCastSpellRequest expects.
func (r CastSpellRequest) Encode() []byte {
	out := make([]byte, castSpellSize)
	le := binary.LittleEndian
	le.PutUint32(out[0:4], r.TargetNetID)
	out[4] = r.SpellSlot
	le.PutUint32(out[5:9], math.Float32bits(r.X))
	le.PutUint32(out[9:13], math.Float32bits(r.Y))
	le.PutUint32(out[13:17], math.Float32bits(r.X2))
	le.PutUint32(out[17:21], math.Float32bits(r.Y2))
	return out
}

// MaxChatLength bounds inbound chat text.
const MaxChatLength = 512

// ReadChatMessage returns the UTF-8 text of a chat packet, truncated to
// MaxChatLength bytes.
func ReadChatMessage(data []byte) string {
	if len(data) > MaxChatLength {
		data = data[:MaxChatLength]
	}
	return string(data)
}
