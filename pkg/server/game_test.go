package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/crystal-mush/riftcore/pkg/api"
	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// recorder is a thread-safe subscriber that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 64)}
}

func (r *recorder) Receive(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recorder) Closed() bool { return false }

func (r *recorder) ofType(typ events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// waitFor blocks until an event of typ arrives or the deadline passes.
func (r *recorder) waitFor(t *testing.T, typ events.EventType) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if evs := r.ofType(typ); len(evs) > 0 {
			return evs[0]
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func newTestGame(t *testing.T) *Game {
	t.Helper()
	conf := DefaultConf()
	conf.TickMS = 5
	g, err := NewGame(conf, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return g
}

func TestPauseFreezesGameTimersOnly(t *testing.T) {
	g := newTestGame(t)
	var gameFired, sysFired bool
	g.Timers.After(100*time.Millisecond, func() { gameFired = true })
	g.SystemTimers.After(100*time.Millisecond, func() { sysFired = true })

	g.Pause()
	g.Tick(200 * time.Millisecond)
	if gameFired {
		t.Error("game timer fired while paused")
	}
	if !sysFired {
		t.Error("system timer should fire while paused")
	}

	g.Unpause()
	g.Tick(100 * time.Millisecond)
	if !gameFired {
		t.Error("game timer should fire after unpause")
	}
	if g.Ticks() != 2 {
		t.Errorf("Ticks() = %d, want 2", g.Ticks())
	}
}

func TestPauseFreezesDashes(t *testing.T) {
	g := newTestGame(t)
	u := g.API.SpawnUnit("Runner", world.KindChampion, world.TeamBlue, world.Vec2{X: 100, Y: 100})
	if !g.API.DashToLocation(u, 600, 100, api.DashOptions{Speed: 1000}) {
		t.Fatal("dash rejected")
	}

	g.Pause()
	start := u.Position()
	g.Tick(100 * time.Millisecond)
	if u.Position() != start {
		t.Errorf("unit moved while paused: %v -> %v", start, u.Position())
	}

	g.Unpause()
	for i := 0; i < 20 && u.IsDashing(); i++ {
		g.Tick(100 * time.Millisecond)
	}
	if u.IsDashing() {
		t.Fatal("dash never finished")
	}
	if got := u.Position(); got.X < 590 {
		t.Errorf("dash ended at %v, want near x=600", got)
	}
}

func TestUnpausePacketResumesAfterDelay(t *testing.T) {
	g := newTestGame(t)
	rec := newRecorder()
	g.EventBus.SubscribeGlobal(rec)

	id := g.JoinPlayer("alice", world.TeamBlue, "Ezreal", false)
	g.Pause()
	if !g.Enqueue(id, packets.EncodeFrame(packets.CmdUnpauseGame, packets.ChannelC2S, nil)) {
		t.Fatal("Enqueue refused")
	}

	step := 100 * time.Millisecond
	for i := 0; i < 49; i++ {
		g.Tick(step)
	}
	if !g.IsPaused() {
		t.Fatal("resumed before the countdown finished")
	}
	if got := len(rec.ofType(events.EvResumeGame)); got != 1 {
		t.Fatalf("resume notifications before countdown = %d, want 1", got)
	}

	g.Tick(step)
	if g.IsPaused() {
		t.Fatal("still paused after the countdown")
	}
	resumes := rec.ofType(events.EvResumeGame)
	if len(resumes) != 2 || resumes[1].Data["completed"] != true {
		t.Errorf("resume notifications = %+v", resumes)
	}
}

func TestPostedActionPanicRecovered(t *testing.T) {
	g := newTestGame(t)
	ran := false
	g.Post("boom", func() { panic("boom") })
	g.Post("after", func() { ran = true })
	g.Tick(time.Millisecond)
	if !ran {
		t.Error("action after a panicking action did not run")
	}
	if g.Ticks() != 1 {
		t.Errorf("Ticks() = %d, want 1", g.Ticks())
	}
}

func TestJoinAndLeavePlayer(t *testing.T) {
	g := newTestGame(t)
	g.Conf.AdminNames = []string{"Root"}

	id := g.JoinPlayer("root", world.TeamPurple, "Lux", false)
	info := g.Players.PeerInfo(id)
	if info == nil || !info.Admin {
		t.Fatalf("PeerInfo = %+v, want admin", info)
	}
	champ := info.Champion
	if champ == nil || champ.Team() != world.TeamPurple {
		t.Fatalf("champion = %+v", champ)
	}
	for slot := range championSpells {
		if champ.Spell(uint8(slot)) == nil {
			t.Errorf("slot %d has no spell", slot)
		}
	}

	g.LeavePlayer(id)
	if g.Players.Count() != 0 {
		t.Errorf("Count() = %d after leave", g.Players.Count())
	}
	if g.Objects.GetUnit(champ.ID()) != nil {
		t.Error("champion still registered after leave")
	}
	if g.MatchRecord().Kills != 1 {
		t.Errorf("Kills = %d, want 1", g.MatchRecord().Kills)
	}
}

func TestLeaveClearsChampionBuffs(t *testing.T) {
	g := newTestGame(t)
	rec := newRecorder()
	g.EventBus.SubscribeGlobal(rec)

	id := g.JoinPlayer("dave", world.TeamBlue, "Garen", false)
	champ := g.Players.Champion(id)
	g.API.AddBuffWithAutoExpire("Empower", 4*time.Second, 1, world.BuffCombatEnchancer, champ, champ, 4*time.Second)

	g.LeavePlayer(id)
	if got := len(rec.ofType(events.EvRemoveBuff)); got != 1 {
		t.Fatalf("remove notifications on leave = %d, want 1", got)
	}
	g.Tick(5 * time.Second)
	if got := len(rec.ofType(events.EvRemoveBuff)); got != 1 {
		t.Errorf("expiry fired for a departed champion: %d remove notifications", got)
	}
}

func TestFarCastDoesNotStallTick(t *testing.T) {
	g := newTestGame(t)
	id := g.JoinPlayer("erin", world.TeamBlue, "LeeSin", false)
	champ := g.Players.Champion(id)
	from := champ.Position()

	req := packets.CastSpellRequest{SpellSlot: 0, X: 60000, Y: 60000}
	g.Enqueue(id, packets.EncodeFrame(packets.CmdCastSpell, packets.ChannelC2S, req.Encode()))
	start := time.Now()
	g.Tick(time.Millisecond)
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("tick with a far cast took %v", took)
	}
	if !champ.IsDashing() {
		t.Fatal("dash strike toward a far cursor should still dash")
	}
	dest := champ.Dash().Target.Position()
	if !g.Nav().IsWalkable(dest.X, dest.Y) {
		t.Errorf("dash target %+v is not walkable", dest)
	}
	if d := dest.Dist(from); d > 601 {
		t.Errorf("dash target is %.0f away from the caster", d)
	}
}

func TestRequestJoinSubscribesBeforeEvents(t *testing.T) {
	g := newTestGame(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	rec := newRecorder()
	res, err := g.RequestJoin(ctx, "bob", world.TeamBlue, "Garen", false, rec)
	if err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if res.Champion == 0 {
		t.Error("JoinResult has no champion")
	}

	g.Enqueue(res.Client, packets.EncodeFrame(packets.CmdChatBoxMessage, packets.ChannelChat, []byte("hello")))
	ev := rec.waitFor(t, events.EvChat)
	if ev.Text != "hello" {
		t.Errorf("chat text = %q", ev.Text)
	}

	g.RequestLeave(res.Client, rec)
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRequestJoinCancelled(t *testing.T) {
	g := newTestGame(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.RequestJoin(ctx, "late", world.TeamBlue, "Garen", false, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	g.Tick(time.Millisecond)
	if g.Players.Count() != 0 {
		t.Error("player joined after the caller gave up")
	}
}

func TestRequestJoinCompletedBeforeDeadlineIsReturned(t *testing.T) {
	g := newTestGame(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		res JoinResult
		err error
	}
	out := make(chan outcome, 1)
	go func() {
		res, err := g.RequestJoin(ctx, "edge", world.TeamBlue, "Garen", false, nil)
		out <- outcome{res, err}
	}()

	// Wait until the join is queued, then cancel right after it runs so
	// both the result and the deadline are ready when the caller wakes.
	deadline := time.Now().Add(2 * time.Second)
	for g.queue.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	g.Post("cancel", cancel)
	g.Tick(time.Millisecond)

	o := <-out
	if o.err != nil {
		t.Fatalf("join ran but RequestJoin returned %v", o.err)
	}
	if g.Players.PeerInfo(o.res.Client) == nil {
		t.Error("returned client is not registered")
	}
	if g.Players.Count() != 1 {
		t.Errorf("Count() = %d, want 1", g.Players.Count())
	}
}

func TestMetricsCountPacketsAndNotifications(t *testing.T) {
	g := newTestGame(t)
	id := g.JoinPlayer("carol", world.TeamBlue, "Annie", false)

	g.Enqueue(id, packets.EncodeFrame(packets.CmdUnpauseGame, packets.ChannelC2S, nil)) // not paused
	g.Enqueue(id, packets.EncodeFrame(packets.CmdPauseGame, packets.ChannelC2S, nil))
	g.Tick(time.Millisecond)

	m := g.Metrics
	if got := testutil.ToFloat64(m.packetsTotal.WithLabelValues("UNPAUSE_GAME", "rejected")); got != 1 {
		t.Errorf("rejected unpause = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.packetsTotal.WithLabelValues("PAUSE_GAME", "accepted")); got != 1 {
		t.Errorf("accepted pause = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notificationsOut.WithLabelValues("pause")); got != 1 {
		t.Errorf("pause notifications = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.paused); got != 1 {
		t.Errorf("paused gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.playersConnected); got != 1 {
		t.Errorf("players gauge = %v, want 1", got)
	}
}

func TestPacketQueuePerPeerLimit(t *testing.T) {
	q := NewPacketQueue()
	for i := 0; i < q.maxPerPeer; i++ {
		if !q.Add(&QueueEntry{Peer: "a", Frame: []byte{1}}) {
			t.Fatalf("entry %d refused", i)
		}
	}
	if q.Add(&QueueEntry{Peer: "a", Frame: []byte{1}}) {
		t.Error("entry over the limit accepted")
	}
	if !q.Add(&QueueEntry{Peer: "b", Frame: []byte{1}}) {
		t.Error("other peer refused")
	}
	if !q.Add(&QueueEntry{Peer: "a", Action: func() {}}) {
		t.Error("posted action refused")
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}

	entries := q.Drain()
	if len(entries) != q.maxPerPeer+2 {
		t.Errorf("Drain() returned %d entries", len(entries))
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after drain", q.Len())
	}
}
