package server

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/crystal-mush/riftcore/pkg/api"
	"github.com/crystal-mush/riftcore/pkg/boltstore"
	"github.com/crystal-mush/riftcore/pkg/chat"
	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/handlers"
	"github.com/crystal-mush/riftcore/pkg/navgrid"
	"github.com/crystal-mush/riftcore/pkg/packets"
	"github.com/crystal-mush/riftcore/pkg/players"
	"github.com/crystal-mush/riftcore/pkg/sched"
	"github.com/crystal-mush/riftcore/pkg/spells"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// Game is the simulation. Everything that reads or writes game state runs
// on the goroutine calling Tick; other goroutines talk to it through
// Enqueue and Post.
type Game struct {
	Conf         *Conf
	Objects      *world.ObjectManager
	Players      *players.Manager
	Timers       *sched.Scheduler // game-script time, frozen while paused
	SystemTimers *sched.Scheduler // always advances
	EventBus     *events.Bus
	Notifier     *packets.BusNotifier
	API          *api.API
	Handlers     *handlers.Manager
	Chat         *chat.Dispatcher
	Metrics      *Metrics
	Store        *boltstore.Store // nil when persistence is disabled
	Replay       *ReplayLog       // nil when replay logging is disabled

	queue   *PacketQueue
	nav     *navgrid.Grid
	started time.Time

	mu     sync.RWMutex
	paused bool
	ticks  uint64
	pauses int
	kills  int
}

// defaultNavGrid is an open square map used when no grid file is configured.
func defaultNavGrid() *navgrid.Grid {
	g, _ := navgrid.New(1500, 1500, 10, world.Vec2{})
	return g
}

// NewGame wires a simulation. A nil grid means an open map.
func NewGame(conf *Conf, grid *navgrid.Grid) (*Game, error) {
	if conf == nil {
		conf = DefaultConf()
	}
	if grid == nil {
		grid = defaultNavGrid()
	}
	g := &Game{
		Conf:         conf,
		Objects:      world.NewObjectManager(),
		Players:      players.NewManager(),
		Timers:       sched.New(),
		SystemTimers: sched.New(),
		EventBus:     events.NewBus(),
		Metrics:      NewMetrics(time.Now()),
		queue:        NewPacketQueue(),
		nav:          grid,
		started:      time.Now(),
	}
	g.Notifier = packets.NewBusNotifier(g.EventBus)

	a, err := api.New(api.Deps{
		Objects:  g.Objects,
		Nav:      grid,
		Timers:   g.Timers,
		Notifier: g.Notifier,
	})
	if err != nil {
		return nil, fmt.Errorf("server: new game: %w", err)
	}
	a.Debug = conf.ScriptDebug
	g.API = a

	g.Chat = chat.NewDispatcher(a, g.Players, conf.ChatPrefix)
	g.Handlers = handlers.NewDefaultManager(&handlers.Env{
		API:          a,
		Players:      g.Players,
		Pause:        g,
		SystemTimers: g.SystemTimers,
		ResumeDelay:  conf.ResumeDelayDuration(),
		Chat:         g.Chat,
		ChatPrefix:   conf.ChatPrefix,
	})
	g.Handlers.OnResult = g.Metrics.ObservePacket

	g.EventBus.SubscribeGlobal(g.Metrics)
	g.EventBus.SubscribeGlobal(&matchStats{game: g})
	return g, nil
}

// IsPaused reports whether game time is frozen.
func (g *Game) IsPaused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// Pause freezes game time. Packets are still processed.
func (g *Game) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.pauses++
		log.Printf("SIM: paused")
	}
}

// Unpause resumes game time.
func (g *Game) Unpause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		log.Printf("SIM: resumed")
	}
}

// Ticks returns how many ticks have run.
func (g *Game) Ticks() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ticks
}

// Nav returns the active navigation grid. Simulation goroutine only.
func (g *Game) Nav() *navgrid.Grid { return g.nav }

// SetNav swaps the navigation grid. Simulation goroutine only.
func (g *Game) SetNav(grid *navgrid.Grid) {
	if grid == nil {
		return
	}
	g.nav = grid
	g.API.SetNavigator(grid)
	log.Printf("SIM: navigation grid replaced (%dx%d)", grid.Width, grid.Height)
}

// Enqueue queues an inbound packet frame from peer for the next tick.
func (g *Game) Enqueue(peer world.ClientID, frame []byte) bool {
	return g.queue.Add(&QueueEntry{Peer: peer, Frame: frame})
}

// Post queues fn to run on the simulation goroutine at the next tick.
func (g *Game) Post(label string, fn func()) {
	g.queue.Add(&QueueEntry{Action: fn, Label: label})
}

// Tick advances the simulation by dt: queued work first, then the system
// clock, then (unless paused) movement and game timers.
func (g *Game) Tick(dt time.Duration) {
	start := time.Now()

	for _, entry := range g.queue.Drain() {
		g.safeExecuteQueueEntry(entry)
	}

	g.SystemTimers.Advance(dt)

	if !g.IsPaused() {
		g.advanceDashes(dt)
		g.Timers.Advance(dt)
	}

	g.mu.Lock()
	g.ticks++
	g.mu.Unlock()
	g.Metrics.ObserveTick(g, time.Since(start))
}

// safeExecuteQueueEntry runs one entry, recovering from panics so a bad
// packet cannot stop the simulation.
func (g *Game) safeExecuteQueueEntry(entry *QueueEntry) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("QUEUE: PANIC executing %q for %q: %v\n%s", entry.Label, entry.Peer, r, debug.Stack())
		}
	}()
	if entry.Action != nil {
		entry.Action()
		return
	}
	g.Handlers.HandleFrame(entry.Peer, entry.Frame)
}

// advanceDashes moves every dashing unit and closes finished dashes.
func (g *Game) advanceDashes(dt time.Duration) {
	for _, u := range g.Objects.Units() {
		if u.IsDashing() && u.AdvanceDash(dt) {
			g.API.CancelDash(u)
		}
	}
}

// Run ticks at the configured rate until ctx is cancelled. Each tick
// advances simulated time by exactly one interval.
func (g *Game) Run(ctx context.Context) error {
	step := g.Conf.TickInterval()
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	log.Printf("SIM: %s running at %v per tick", g.Conf.MatchName, step)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.Tick(step)
		}
	}
}

// championSpells are bound to slots 0.. of every champion, in order.
var championSpells = []string{"DashStrike", "Empower", "Blink"}

// JoinPlayer spawns a champion for name and registers the client.
// Simulation goroutine only.
func (g *Game) JoinPlayer(name string, team world.TeamID, champion string, admin bool) world.ClientID {
	champ := g.API.SpawnUnit(champion, world.KindChampion, team, g.Conf.SpawnFor(team))
	for slot, spell := range championSpells {
		if _, err := spells.Bind(g.API, g.Timers, champ, uint8(slot), spell); err != nil {
			log.Printf("WARNING: binding %s to %s: %v", spell, champion, err)
		}
	}
	id := g.Players.Join(name, team, champ)
	if admin || g.Conf.IsAdmin(name) {
		g.Players.SetAdmin(id, true)
	}
	log.Printf("SIM: %s joined %v as %s (%s)", name, team, champion, id)
	return id
}

// LeavePlayer removes a client and its champion. Simulation goroutine only.
func (g *Game) LeavePlayer(id world.ClientID) {
	p := g.Players.Leave(id)
	if p == nil {
		return
	}
	if p.Champion != nil {
		g.API.KillUnit(p.Champion, nil)
		g.API.RemoveUnit(p.Champion)
	}
	log.Printf("SIM: %s left", p.Name)
}

// JoinResult describes a joined client.
type JoinResult struct {
	Client   world.ClientID
	Team     world.TeamID
	Champion world.NetID
}

// RequestJoin posts JoinPlayer to the simulation goroutine and waits for it.
// A non-nil sub is subscribed in the same step, so it sees every event
// after the join. If ctx ends first the join is either skipped or, when it
// already ran, its result is returned anyway; it never runs unobserved.
func (g *Game) RequestJoin(ctx context.Context, name string, team world.TeamID, champion string, admin bool, sub events.Subscriber) (JoinResult, error) {
	var (
		mu     sync.Mutex
		gaveUp bool
	)
	done := make(chan JoinResult, 1)
	g.Post("join "+name, func() {
		mu.Lock()
		defer mu.Unlock()
		if gaveUp {
			return
		}
		id := g.JoinPlayer(name, team, champion, admin)
		if sub != nil {
			g.EventBus.Subscribe(id, team, sub)
		}
		res := JoinResult{Client: id, Team: team}
		if c := g.Players.Champion(id); c != nil {
			res.Champion = c.ID()
		}
		done <- res
	})
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
	}

	mu.Lock()
	gaveUp = true
	mu.Unlock()
	select {
	case res := <-done:
		return res, nil
	default:
		return JoinResult{}, fmt.Errorf("server: join %s: %w", name, ctx.Err())
	}
}

// RequestLeave posts LeavePlayer to the simulation goroutine and drops
// sub from the bus.
func (g *Game) RequestLeave(id world.ClientID, sub events.Subscriber) {
	if sub != nil {
		g.EventBus.Unsubscribe(id, sub)
	}
	g.Post("leave", func() { g.LeavePlayer(id) })
}

// MatchRecord summarizes the run so far for persistence.
func (g *Game) MatchRecord() *boltstore.MatchRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return &boltstore.MatchRecord{
		Name:    g.Conf.MatchName,
		Started: g.started,
		Ended:   time.Now(),
		Ticks:   g.ticks,
		Kills:   g.kills,
		Pauses:  g.pauses,
	}
}

// matchStats counts deaths for the match record.
type matchStats struct {
	game *Game
}

func (m *matchStats) Receive(ev events.Event) {
	if ev.Type != events.EvUnitDeath {
		return
	}
	m.game.mu.Lock()
	m.game.kills++
	m.game.mu.Unlock()
}

func (m *matchStats) Closed() bool { return false }
