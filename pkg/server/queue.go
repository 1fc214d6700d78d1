package server

import (
	"log"
	"sync"
	"time"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// QueueEntry is one unit of work for the simulation goroutine: either an
// inbound packet frame or a posted system action.
type QueueEntry struct {
	Peer     world.ClientID // Sender (System for posted actions)
	Frame    []byte         // Raw packet frame (nil for actions)
	Action   func()         // Posted action (nil for packets)
	Label    string         // Used in panic logs
	Enqueued time.Time
}

// PacketQueue collects work from transport goroutines until the next tick
// drains it.
type PacketQueue struct {
	mu         sync.Mutex
	entries    []*QueueEntry
	maxPerPeer int // Max queued packets per client
	dropped    uint64
}

// NewPacketQueue creates a new queue.
func NewPacketQueue() *PacketQueue {
	return &PacketQueue{maxPerPeer: 256}
}

// Add queues an entry. Packets beyond the per-client limit are dropped;
// posted actions are never dropped.
func (q *PacketQueue) Add(entry *QueueEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if entry.Action == nil && q.maxPerPeer > 0 {
		count := 0
		for _, e := range q.entries {
			if e.Peer == entry.Peer && e.Action == nil {
				count++
			}
		}
		if count >= q.maxPerPeer {
			q.dropped++
			log.Printf("QUEUE: dropping packet from %q, per-client limit (%d) reached", entry.Peer, q.maxPerPeer)
			return false
		}
	}
	if entry.Enqueued.IsZero() {
		entry.Enqueued = time.Now()
	}
	q.entries = append(q.entries, entry)
	return true
}

// Drain removes and returns everything queued, oldest first.
func (q *PacketQueue) Drain() []*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}

// Len returns the number of queued entries.
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped returns how many packets were refused.
func (q *PacketQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
