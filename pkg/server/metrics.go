package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crystal-mush/riftcore/pkg/events"
	"github.com/crystal-mush/riftcore/pkg/packets"
)

// Metrics holds Prometheus metric descriptors for the simulation. It also
// listens on the event bus to count outbound notifications.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	playersConnected prometheus.Gauge
	objectsTotal     prometheus.Gauge
	activeBuffs      prometheus.Gauge
	pendingTimers    *prometheus.GaugeVec
	paused           prometheus.Gauge
	packetsTotal     *prometheus.CounterVec
	notificationsOut *prometheus.CounterVec
	tickSeconds      prometheus.Histogram
	ticksTotal       prometheus.Counter
	uptimeSeconds    prometheus.Gauge
	memoryHeapBytes  prometheus.Gauge
	goroutines       prometheus.Gauge
}

// NewMetrics creates metrics on a private registry.
func NewMetrics(startTime time.Time) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: startTime,
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_players_connected",
			Help: "Number of currently connected clients.",
		}),
		objectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_objects_total",
			Help: "Objects registered in the simulation.",
		}),
		activeBuffs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_buffs_active",
			Help: "Buffs currently attached to units.",
		}),
		pendingTimers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "riftcore_timers_pending",
			Help: "Deferred tasks waiting to fire, by scheduler.",
		}, []string{"scheduler"}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_paused",
			Help: "1 while the simulation is paused.",
		}),
		packetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riftcore_packets_total",
			Help: "Inbound packets handled, by type and result.",
		}, []string{"cmd", "result"}),
		notificationsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riftcore_notifications_total",
			Help: "Outbound notifications published, by type.",
		}, []string{"type"}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riftcore_tick_duration_seconds",
			Help:    "Wall time spent processing one tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riftcore_ticks_total",
			Help: "Ticks processed since start.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riftcore_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	m.registry.MustRegister(
		m.playersConnected,
		m.objectsTotal,
		m.activeBuffs,
		m.pendingTimers,
		m.paused,
		m.packetsTotal,
		m.notificationsOut,
		m.tickSeconds,
		m.ticksTotal,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObservePacket counts one handled packet.
func (m *Metrics) ObservePacket(cmd packets.Cmd, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.packetsTotal.WithLabelValues(cmd.String(), result).Inc()
}

// ObserveTick records tick timing and simulation gauges. It runs on the
// simulation goroutine at the end of every tick.
func (m *Metrics) ObserveTick(g *Game, took time.Duration) {
	m.ticksTotal.Inc()
	m.tickSeconds.Observe(took.Seconds())
	m.playersConnected.Set(float64(g.Players.Count()))
	m.objectsTotal.Set(float64(g.Objects.Count()))
	buffs := 0
	for _, u := range g.Objects.Units() {
		buffs += u.BuffCount()
	}
	m.activeBuffs.Set(float64(buffs))
	m.pendingTimers.WithLabelValues("game").Set(float64(g.Timers.Pending()))
	m.pendingTimers.WithLabelValues("system").Set(float64(g.SystemTimers.Pending()))
	if g.IsPaused() {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}

// Receive implements events.Subscriber.
func (m *Metrics) Receive(ev events.Event) {
	m.notificationsOut.WithLabelValues(ev.Type.String()).Inc()
}

// Closed implements events.Subscriber.
func (m *Metrics) Closed() bool { return false }

// Handler returns an http.Handler that refreshes process gauges before
// serving the registry.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
		m.goroutines.Set(float64(runtime.NumGoroutine()))
		inner.ServeHTTP(w, r)
	})
}
