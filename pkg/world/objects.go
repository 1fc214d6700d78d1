package world

import (
	"sort"
	"sync"
)

// firstNetID matches the range clients expect for server-spawned objects.
const firstNetID NetID = 0x40000001

// ObjectManager is the id-keyed registry of every simulated object.
// Writes happen on the simulation goroutine; the lock only guards readers
// on other goroutines (metrics, admin endpoints).
type ObjectManager struct {
	mu      sync.RWMutex
	objects map[NetID]Object
	nextID  NetID
	teams   []TeamID
}

// NewObjectManager creates an empty registry. With no teams given, the
// standard blue/purple/neutral set is registered.
func NewObjectManager(teams ...TeamID) *ObjectManager {
	if len(teams) == 0 {
		teams = []TeamID{TeamBlue, TeamPurple, TeamNeutral}
	}
	return &ObjectManager{
		objects: make(map[NetID]Object),
		nextID:  firstNetID,
		teams:   append([]TeamID(nil), teams...),
	}
}

// NextID allocates a fresh NetID.
func (m *ObjectManager) NextID() NetID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id
}

// Add registers o under its NetID, replacing any previous holder.
func (m *ObjectManager) Add(o Object) {
	if o == nil || o.ID() == None {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[o.ID()] = o
}

// Remove drops the object with the given id. Unknown ids are ignored.
func (m *ObjectManager) Remove(id NetID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
}

// SpawnUnit allocates an id for a new unit and registers it.
func (m *ObjectManager) SpawnUnit(name string, kind Kind, team TeamID, pos Vec2) *Unit {
	u := NewUnit(m.NextID(), name, kind, team, pos)
	m.Add(u)
	return u
}

// GetObjectByID returns the object with id, or nil.
func (m *ObjectManager) GetObjectByID(id NetID) Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[id]
}

// GetUnit returns the unit with id, or nil when absent or not a unit.
func (m *ObjectManager) GetUnit(id NetID) *Unit {
	u, _ := m.GetObjectByID(id).(*Unit)
	return u
}

// GetObjects returns a snapshot of the registry.
func (m *ObjectManager) GetObjects() map[NetID]Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[NetID]Object, len(m.objects))
	for id, o := range m.objects {
		out[id] = o
	}
	return out
}

// Units returns every registered unit ordered by NetID.
func (m *ObjectManager) Units() []*Unit {
	m.mu.RLock()
	units := make([]*Unit, 0, len(m.objects))
	for _, o := range m.objects {
		if u, ok := o.(*Unit); ok {
			units = append(units, u)
		}
	}
	m.mu.RUnlock()
	sort.Slice(units, func(i, j int) bool { return units[i].ID() < units[j].ID() })
	return units
}

// GetUnitsInRange returns units within rng of the target's position,
// ordered by NetID.
func (m *ObjectManager) GetUnitsInRange(t Target, rng float64, aliveOnly bool) []*Unit {
	if !t.Valid() {
		return nil
	}
	center := t.Position()
	var out []*Unit
	for _, u := range m.Units() {
		if aliveOnly && u.IsDead() {
			continue
		}
		if u.Position().Dist(center) <= rng {
			out = append(out, u)
		}
	}
	return out
}

// GetChampionsInRange is GetUnitsInRange restricted to champions.
func (m *ObjectManager) GetChampionsInRange(t Target, rng float64, aliveOnly bool) []*Unit {
	var out []*Unit
	for _, u := range m.GetUnitsInRange(t, rng, aliveOnly) {
		if u.Kind() == KindChampion {
			out = append(out, u)
		}
	}
	return out
}

// Teams returns the registered team identifiers.
func (m *ObjectManager) Teams() []TeamID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TeamID(nil), m.teams...)
}

// Count returns the number of registered objects.
func (m *ObjectManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
