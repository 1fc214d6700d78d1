package players

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// PeerInfo describes one connected client.
type PeerInfo struct {
	ID       world.ClientID
	Name     string
	Team     world.TeamID
	Champion *world.Unit
	Admin    bool
}

// Manager tracks connected clients and the champion each one controls.
type Manager struct {
	mu    sync.RWMutex
	peers map[world.ClientID]*PeerInfo
}

func NewManager() *Manager {
	return &Manager{peers: make(map[world.ClientID]*PeerInfo)}
}

// Join registers a client and returns its new id.
func (m *Manager) Join(name string, team world.TeamID, champion *world.Unit) world.ClientID {
	id := world.ClientID(uuid.NewString())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[id] = &PeerInfo{ID: id, Name: name, Team: team, Champion: champion}
	return id
}

// Leave forgets a client. The champion stays in the world.
func (m *Manager) Leave(id world.ClientID) *PeerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.peers[id]
	delete(m.peers, id)
	return p
}

// PeerInfo returns the client's record, or nil for unknown clients and
// for the system sender.
func (m *Manager) PeerInfo(id world.ClientID) *PeerInfo {
	if id == world.System {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peers[id]
}

// Champion returns the unit controlled by id, or nil.
func (m *Manager) Champion(id world.ClientID) *world.Unit {
	if p := m.PeerInfo(id); p != nil {
		return p.Champion
	}
	return nil
}

// SetAdmin grants or revokes admin commands for a client.
func (m *Manager) SetAdmin(id world.ClientID, admin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.peers[id]; p != nil {
		p.Admin = admin
	}
}

// Peers returns all clients sorted by name.
func (m *Manager) Peers() []*PeerInfo {
	m.mu.RLock()
	out := make([]*PeerInfo, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}
