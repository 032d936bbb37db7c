package mesh

import (
	"math/rand"
	"testing"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
)

func newTestMesh(now time.Time) *Mesh {
	bus := eventbus.New()
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return now }
	cfg.Rand = rand.New(rand.NewSource(42))
	return New(cfg, bus)
}

func TestJoinBuildsFullMeshConnectivity(t *testing.T) {
	m := newTestMesh(time.Now())
	m.Join("a")
	m.Join("b")
	m.Join("c")

	for _, id := range []string{"a", "b", "c"} {
		neighbors := m.GetNeighbors(id)
		if len(neighbors) != 2 {
			t.Fatalf("node %s has %d neighbors, want 2 in a 3-node mesh", id, len(neighbors))
		}
	}
}

func TestLeaveRemovesNodeAndEdges(t *testing.T) {
	m := newTestMesh(time.Now())
	m.Join("a")
	m.Join("b")
	m.Leave("a")

	if len(m.GetNeighbors("a")) != 0 {
		t.Fatal("left node should have no neighbors")
	}
	if len(m.GetNeighbors("b")) != 0 {
		t.Fatal("remaining node should no longer reference the departed one")
	}
}

func TestConfigureSwitchesTopology(t *testing.T) {
	m := newTestMesh(time.Now())
	m.Join("a")
	m.Join("b")
	m.Join("c")
	m.Join("d")

	m.Configure(domain.TopologyStar, 0)
	topo := m.GetTopology()
	if topo.Kind != domain.TopologyStar {
		t.Fatalf("Kind = %v, want star", topo.Kind)
	}
	hubNeighbors := m.GetNeighbors("a")
	if len(hubNeighbors) != 3 {
		t.Fatalf("hub should connect to all 3 spokes, got %d", len(hubNeighbors))
	}
}

func TestMaxConnectionsCapsDegree(t *testing.T) {
	m := newTestMesh(time.Now())
	m.cfg.MaxConnections = 2
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		m.Join(id)
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if n := len(m.GetNeighbors(id)); n > 2 {
			t.Fatalf("node %s has %d connections, want at most 2", id, n)
		}
	}
}

func TestDecayReducesStaleConnectionWeight(t *testing.T) {
	now := time.Now()
	m := newTestMesh(now)
	m.Join("a")
	m.Join("b")

	m.mu.Lock()
	initial := m.nodes["a"].Connections["b"].Weight
	m.mu.Unlock()

	m.cfg.Now = func() time.Time { return now.Add(2 * time.Minute) }
	m.decay()

	m.mu.Lock()
	w := m.nodes["a"].Connections["b"].Weight
	m.mu.Unlock()
	if w >= initial {
		t.Fatalf("weight = %v, want decayed below initial %v", w, initial)
	}
}

func TestTouchResetsDecayClock(t *testing.T) {
	now := time.Now()
	m := newTestMesh(now)
	m.Join("a")
	m.Join("b")

	m.mu.Lock()
	initial := m.nodes["a"].Connections["b"].Weight
	m.mu.Unlock()

	later := now.Add(2 * time.Minute)
	m.cfg.Now = func() time.Time { return later }
	m.Touch("a", "b")
	m.decay()

	m.mu.Lock()
	w := m.nodes["a"].Connections["b"].Weight
	m.mu.Unlock()
	if w != initial {
		t.Fatalf("weight = %v, want unchanged at %v after touch resets decay clock", w, initial)
	}
}
