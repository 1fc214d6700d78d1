package packets

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/world"
)

func TestCastSpellRequestDecode(t *testing.T) {
	req := CastSpellRequest{TargetNetID: 0x40000002, SpellSlot: 3, X: 10, Y: -2.5, X2: 1, Y2: 0}
	got, err := ReadCastSpellRequest(req.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != req {
		t.Errorf("got %+v, want %+v", got, req)
	}
}

func TestCastSpellRequestShort(t *testing.T) {
	_, err := ReadCastSpellRequest([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortPayload) {
		t.Errorf("expected ErrShortPayload, got %v", err)
	}
}

func TestSplitFrame(t *testing.T) {
	frame := EncodeFrame(CmdUnpauseGame, ChannelC2S, []byte{0xAA})
	cmd, ch, payload, err := SplitFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != CmdUnpauseGame || ch != ChannelC2S || len(payload) != 1 || payload[0] != 0xAA {
		t.Errorf("unexpected split: %v %v %v", cmd, ch, payload)
	}
	if _, _, _, err := SplitFrame([]byte{1}); !errors.Is(err, ErrShortFrame) {
		t.Errorf("expected ErrShortFrame, got %v", err)
	}
}

func TestReadChatMessageTruncates(t *testing.T) {
	long := make([]byte, MaxChatLength+10)
	for i := range long {
		long[i] = 'a'
	}
	if got := ReadChatMessage(long); len(got) != MaxChatLength {
		t.Errorf("expected %d bytes, got %d", MaxChatLength, len(got))
	}
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Receive(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Closed() bool { return false }

func TestNotifierAddAndRemoveBuff(t *testing.T) {
	bus := events.NewBus()
	rec := &recorder{}
	bus.SubscribeGlobal(rec)
	n := NewBusNotifier(bus)

	u := world.NewUnit(7, "Annie", world.KindChampion, world.TeamBlue, world.Vec2{})
	b := world.NewBuff("Haste", 2*time.Second, 1, world.BuffHaste, u, nil)
	u.AddBuff(b)
	n.NotifyAddBuff(b)
	n.NotifyRemoveBuff(u, b.Name, b.Slot)

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}
	add := rec.events[0]
	if add.Type != events.EvAddBuff || add.Source != 7 || add.Data["type"] != "haste" || add.Data["slot"] != 0 {
		t.Errorf("unexpected add event %+v", add)
	}
	if rec.events[1].Type != events.EvRemoveBuff || rec.events[1].Data["name"] != "Haste" {
		t.Errorf("unexpected remove event %+v", rec.events[1])
	}
}

func TestNotifierVisibilityIsTeamScoped(t *testing.T) {
	bus := events.NewBus()
	blue, purple := &recorder{}, &recorder{}
	bus.Subscribe("b", world.TeamBlue, blue)
	bus.Subscribe("p", world.TeamPurple, purple)
	n := NewBusNotifier(bus)

	u := world.NewUnit(1, "Teemo", world.KindChampion, world.TeamBlue, world.Vec2{})
	n.NotifyVisibility(u, world.TeamPurple, false)

	if len(blue.events) != 0 || len(purple.events) != 1 {
		t.Errorf("visibility leaked: blue=%d purple=%d", len(blue.events), len(purple.events))
	}
}

func TestBroadcastRawCopiesPayload(t *testing.T) {
	bus := events.NewBus()
	rec := &recorder{}
	bus.SubscribeGlobal(rec)
	payload := []byte{1, 2, 3}
	NewBusNotifier(bus).BroadcastRaw(payload)
	payload[0] = 9
	if rec.events[0].Raw[0] != 1 {
		t.Error("raw payload should be copied before publishing")
	}
}
