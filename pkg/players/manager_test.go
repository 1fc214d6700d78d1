package players

import (
	"testing"

	"github.com/crystal-mush/riftcore/pkg/world"
)

func TestJoinLeave(t *testing.T) {
	m := NewManager()
	champ := world.NewUnit(1, "Ahri", world.KindChampion, world.TeamBlue, world.Vec2{})

	a := m.Join("alice", world.TeamBlue, champ)
	b := m.Join("bob", world.TeamPurple, nil)
	if a == b || a == world.System {
		t.Fatalf("ids should be unique and non-empty: %q %q", a, b)
	}
	if m.Champion(a) != champ {
		t.Error("champion not resolved")
	}
	if m.Champion(b) != nil {
		t.Error("bob has no champion")
	}
	if m.Count() != 2 {
		t.Errorf("expected 2 peers, got %d", m.Count())
	}

	if p := m.Leave(a); p == nil || p.Name != "alice" {
		t.Errorf("unexpected leave result %+v", p)
	}
	if m.PeerInfo(a) != nil {
		t.Error("peer should be gone")
	}
}

func TestSystemSenderHasNoPeer(t *testing.T) {
	m := NewManager()
	if m.PeerInfo(world.System) != nil || m.Champion(world.System) != nil {
		t.Error("system sender must not resolve to a peer")
	}
}

func TestPeersSortedAndAdmin(t *testing.T) {
	m := NewManager()
	z := m.Join("zed", world.TeamBlue, nil)
	m.Join("ashe", world.TeamBlue, nil)
	m.SetAdmin(z, true)

	peers := m.Peers()
	if peers[0].Name != "ashe" || peers[1].Name != "zed" {
		t.Errorf("unexpected order %v %v", peers[0].Name, peers[1].Name)
	}
	if !m.PeerInfo(z).Admin {
		t.Error("admin flag not set")
	}
}
