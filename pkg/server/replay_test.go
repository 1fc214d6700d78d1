package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/world"
)

func TestReplayLogRecordsNotifications(t *testing.T) {
	r, err := OpenReplayLog(filepath.Join(t.TempDir(), "replay.sqlite"), "m1")
	if err != nil {
		t.Fatalf("OpenReplayLog: %v", err)
	}
	defer r.Close()

	bus := events.NewBus()
	bus.SubscribeGlobal(r)
	bus.Broadcast(events.Event{Type: events.EvChat, Text: "gg", Data: map[string]any{"name": "alice"}})
	bus.EmitToTeam(world.TeamBlue, events.Event{Type: events.EvVisibility, Source: 7})
	bus.Broadcast(events.Event{Type: events.EvRaw, Raw: []byte{0xAB}})

	n, err := r.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count() = %d, want 3", n)
	}

	got, err := r.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].Type != "visibility" || got[0].Source != 7 || got[0].Team != int(world.TeamBlue) {
		t.Errorf("first entry = %+v", got[0])
	}
	if got[1].Type != "raw" || got[1].Data["raw"] == nil {
		t.Errorf("second entry = %+v", got[1])
	}

	all, err := r.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Text != "gg" || all[0].Data["name"] != "alice" {
		t.Errorf("chat entry = %+v", all[0])
	}
}

func TestReplayLogSeparatesMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.sqlite")
	a, err := OpenReplayLog(path, "a")
	if err != nil {
		t.Fatal(err)
	}
	a.Receive(events.Event{Type: events.EvPause})
	a.Close()

	b, err := OpenReplayLog(path, "b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if n, _ := b.Count(); n != 0 {
		t.Errorf("match b sees %d rows from match a", n)
	}
}

func TestReplayLogClosed(t *testing.T) {
	r, err := OpenReplayLog(filepath.Join(t.TempDir(), "replay.sqlite"), "m")
	if err != nil {
		t.Fatal(err)
	}
	if r.Closed() {
		t.Fatal("new log reports closed")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !r.Closed() {
		t.Error("Closed() = false after Close")
	}
	r.Receive(events.Event{Type: events.EvChat}) // must not panic
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestReplayLogStampsGameClock(t *testing.T) {
	r, err := OpenReplayLog(filepath.Join(t.TempDir(), "replay.sqlite"), "m")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	now := 1500 * time.Millisecond
	r.SetClock(func() time.Duration { return now })
	r.Receive(events.Event{Type: events.EvPause})
	now = 4 * time.Second
	r.Receive(events.Event{Type: events.EvResumeGame})

	got, err := r.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].GameMS != 1500 || got[1].GameMS != 4000 {
		t.Errorf("entries = %+v, want game_ms 1500 then 4000", got)
	}
}

func TestReplayLogCloseWritesQueuedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.sqlite")
	r, err := OpenReplayLog(path, "m")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		r.Receive(events.Event{Type: events.EvUnitDeath, Source: world.NetID(i + 1)})
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := OpenReplayLog(path, "m")
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	n, err := again.Count()
	if err != nil {
		t.Fatal(err)
	}
	if want := 200 - int(r.Dropped()); n != want {
		t.Errorf("Count() = %d after reopen, want %d", n, want)
	}
	if r.Dropped() != 0 {
		t.Errorf("Dropped() = %d with a buffer larger than the burst", r.Dropped())
	}
}

func TestReplayRowsUseGameClock(t *testing.T) {
	g := newTestGame(t)
	r, err := OpenReplayLog(filepath.Join(t.TempDir(), "replay.sqlite"), "m")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.SetClock(g.SystemTimers.Now)
	g.EventBus.SubscribeGlobal(r)

	g.Tick(250 * time.Millisecond)
	g.JoinPlayer("alice", world.TeamBlue, "Ezreal", false)

	got, err := r.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Fatal("join produced no replay rows")
	}
	for _, e := range got {
		if e.GameMS != 250 {
			t.Errorf("row %s stamped %dms, want the game clock (250)", e.Type, e.GameMS)
		}
	}
}
