// Package mesh maintains the neural mesh: a directed, weighted graph of
// connections between registered agents, rebuilt on membership change
// and decayed on a timer. Peer assignment per topology kind follows the
// same by-kind dispatch shape used for Kubernetes-native swarm topology
// managers elsewhere in the ecosystem, adapted here to a single-process,
// in-memory graph instead of a CRD-backed one.
package mesh

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
)

// Config tunes mesh topology and decay behavior.
type Config struct {
	Topology        domain.TopologyKind
	MaxConnections  int
	DecayInterval   time.Duration
	DecayThreshold  time.Duration
	DecayFactor     float64
	MaxRunDuration  time.Duration // 0 means unbounded
	Now             func() time.Time
	Rand            *rand.Rand
}

// DefaultConfig returns the mesh's production tuning.
func DefaultConfig() Config {
	return Config{
		Topology:       domain.TopologyMesh,
		MaxConnections: 5,
		DecayInterval:  5 * time.Second,
		DecayThreshold: 60 * time.Second,
		DecayFactor:    0.95,
		MaxRunDuration: 60 * time.Minute,
		Now:            time.Now,
	}
}

// Mesh holds the current set of nodes and their connections.
type Mesh struct {
	cfg Config
	bus *eventbus.Bus

	mu    sync.Mutex
	nodes map[string]*domain.MeshNode

	startedAt time.Time
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New constructs a Mesh that publishes topology changes onto bus.
func New(cfg Config, bus *eventbus.Bus) *Mesh {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 5
	}
	return &Mesh{
		cfg:    cfg,
		bus:    bus,
		nodes:  make(map[string]*domain.MeshNode),
		stopCh: make(chan struct{}),
	}
}

// Join adds agentID as a mesh node and rebuilds the topology.
func (m *Mesh) Join(agentID string) {
	m.mu.Lock()
	if _, exists := m.nodes[agentID]; exists {
		m.mu.Unlock()
		return
	}
	now := m.cfg.Now()
	m.nodes[agentID] = &domain.MeshNode{
		AgentID: agentID,
		Position: domain.Position{
			X: m.cfg.Rand.Float64() * 100,
			Y: m.cfg.Rand.Float64() * 100,
			Z: m.cfg.Rand.Float64() * 100,
		},
		Connections: make(map[string]*domain.Connection),
		JoinedAt:    now,
	}
	m.rebuildLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.TopologyUpdated, snap)
	}
}

// Leave removes agentID from the mesh and rebuilds the topology.
func (m *Mesh) Leave(agentID string) {
	m.mu.Lock()
	if _, exists := m.nodes[agentID]; !exists {
		m.mu.Unlock()
		return
	}
	delete(m.nodes, agentID)
	for _, n := range m.nodes {
		delete(n.Connections, agentID)
	}
	m.rebuildLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.TopologyUpdated, snap)
	}
}

// Configure changes the topology kind and/or max connections, then
// rebuilds. An invalid topology kind is ignored.
func (m *Mesh) Configure(topology domain.TopologyKind, maxConnections int) {
	m.mu.Lock()
	if topology.IsValid() {
		m.cfg.Topology = topology
	}
	if maxConnections > 0 {
		m.cfg.MaxConnections = maxConnections
	}
	m.rebuildLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.TopologyUpdated, snap)
	}
}

// rebuildLocked clears and re-derives every node's connections according
// to the current topology kind. Callers must hold m.mu.
func (m *Mesh) rebuildLocked() {
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, n := range m.nodes {
		n.Connections = make(map[string]*domain.Connection)
	}

	switch m.cfg.Topology {
	case domain.TopologyHierarchical:
		m.rebuildHierarchical(ids)
	case domain.TopologyRing:
		m.rebuildRing(ids)
	case domain.TopologyStar:
		m.rebuildStar(ids)
	default:
		m.rebuildMesh(ids)
	}
}

func (m *Mesh) connect(from, to string) {
	limit := m.cfg.MaxConnections
	if limit > len(m.nodes)-1 {
		limit = len(m.nodes) - 1
	}
	if len(m.nodes[from].Connections) >= limit {
		return
	}
	// Weight is drawn uniformly from (0,1]: Float64() returns [0,1), so
	// the complement keeps 0 itself impossible.
	weight := 1 - m.cfg.Rand.Float64()
	m.nodes[from].Connections[to] = &domain.Connection{
		ToAgentID:   to,
		Weight:      weight,
		Kind:        domain.ConnectionAsync,
		ProtocolTag: "ws",
		LastActive:  m.cfg.Now(),
	}
}

func (m *Mesh) rebuildMesh(ids []string) {
	for _, a := range ids {
		for _, b := range ids {
			if a != b {
				m.connect(a, b)
			}
		}
	}
}

func (m *Mesh) rebuildHierarchical(ids []string) {
	for i, id := range ids {
		if i == 0 {
			continue
		}
		parent := ids[(i-1)/2]
		m.connect(id, parent)
		m.connect(parent, id)
	}
}

func (m *Mesh) rebuildRing(ids []string) {
	n := len(ids)
	if n < 2 {
		return
	}
	for i, id := range ids {
		next := ids[(i+1)%n]
		m.connect(id, next)
		m.connect(next, id)
	}
}

func (m *Mesh) rebuildStar(ids []string) {
	if len(ids) == 0 {
		return
	}
	hub := ids[0]
	for _, id := range ids[1:] {
		m.connect(hub, id)
		m.connect(id, hub)
	}
}

// MeshTopology is a snapshot of the current graph, published on every
// membership change, explicit configure, and decay tick. NodeCount,
// ConnectionCount and AvgConnectionsPerNode are the fields the periodic
// topologyUpdated event is specified to carry; Kind and Nodes are carried
// alongside for callers that want the full graph rather than a summary.
type MeshTopology struct {
	Kind                  domain.TopologyKind `json:"kind"`
	Nodes                 []domain.MeshNode   `json:"nodes"`
	NodeCount             int                 `json:"node_count"`
	ConnectionCount       int                 `json:"connection_count"`
	AvgConnectionsPerNode float64             `json:"avg_connections_per_node"`
}

func (m *Mesh) snapshotLocked() MeshTopology {
	nodes := make([]domain.MeshNode, 0, len(m.nodes))
	conns := 0
	for _, n := range m.nodes {
		nodes = append(nodes, *n)
		conns += len(n.Connections)
	}
	avg := 0.0
	if len(m.nodes) > 0 {
		avg = float64(conns) / float64(len(m.nodes))
	}
	return MeshTopology{
		Kind:                  m.cfg.Topology,
		Nodes:                 nodes,
		NodeCount:             len(m.nodes),
		ConnectionCount:       conns,
		AvgConnectionsPerNode: avg,
	}
}

// RunStoppedEvent is published when the decay loop exits, whether from a
// caller-initiated Stop or from MaxRunDuration elapsing.
type RunStoppedEvent struct {
	Reason     RunStopReason `json:"reason"`
	DurationMs int64         `json:"duration_ms"`
}

// GetTopology returns a snapshot of the current graph.
func (m *Mesh) GetTopology() MeshTopology {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// GetNeighbors returns the agent IDs agentID is directly connected to.
func (m *Mesh) GetNeighbors(agentID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[agentID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.Connections))
	for to := range n.Connections {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// Touch refreshes the LastActive timestamp of the connection from->to,
// resetting its decay clock.
func (m *Mesh) Touch(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[from]
	if !ok {
		return
	}
	if c, ok := n.Connections[to]; ok {
		c.LastActive = m.cfg.Now()
	}
}

// SetMaxRunDuration changes the bounded-run timeout. 0 means unbounded.
func (m *Mesh) SetMaxRunDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.MaxRunDuration = d
}

// RunStopReason explains why Run's background loop exited on its own.
type RunStopReason string

const (
	RunStoppedByCaller   RunStopReason = "manual"
	RunStoppedByDuration RunStopReason = "timeout"
)

// Run starts the decay tick and, if MaxRunDuration is non-zero, a bound
// on total run time, in the background, and returns at once. The loop
// runs until ctx is cancelled, Stop is called, or the duration bound
// elapses; the returned channel then receives the stop reason. On exit
// the loop publishes a runStopped event
// carrying the reason and elapsed duration, followed by one final
// topologyUpdated snapshot.
func (m *Mesh) Run(ctx interface{ Done() <-chan struct{} }) <-chan RunStopReason {
	done := make(chan RunStopReason, 1)
	m.mu.Lock()
	m.startedAt = m.cfg.Now()
	maxDur := m.cfg.MaxRunDuration
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.DecayInterval)
		defer ticker.Stop()

		var deadline <-chan time.Time
		if maxDur > 0 {
			timer := time.NewTimer(maxDur)
			defer timer.Stop()
			deadline = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				m.finishRun(done, RunStoppedByCaller)
				return
			case <-m.stopCh:
				m.finishRun(done, RunStoppedByCaller)
				return
			case <-deadline:
				m.finishRun(done, RunStoppedByDuration)
				return
			case <-ticker.C:
				m.decay()
			}
		}
	}()
	return done
}

func (m *Mesh) finishRun(done chan<- RunStopReason, reason RunStopReason) {
	m.mu.Lock()
	elapsed := m.cfg.Now().Sub(m.startedAt)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.RunStopped, RunStoppedEvent{Reason: reason, DurationMs: elapsed.Milliseconds()})
		m.bus.Publish(eventbus.TopologyUpdated, snapshot)
	}
	done <- reason
}

func (m *Mesh) decay() {
	now := m.cfg.Now()
	m.mu.Lock()
	for _, n := range m.nodes {
		for _, c := range n.Connections {
			if now.Sub(c.LastActive) > m.cfg.DecayThreshold {
				c.Weight *= m.cfg.DecayFactor
				if c.Weight < 0.01 {
					c.Weight = 0.01
				}
			}
		}
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.TopologyUpdated, snapshot)
	}
}

// Stop halts the decay tick. Safe to call more than once.
func (m *Mesh) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Status summarizes the mesh for health/status reporting.
type Status struct {
	NodeCount       int
	ConnectionCount int
	Topology        domain.TopologyKind
}

// Status returns a summary of the current mesh.
func (m *Mesh) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := 0
	for _, n := range m.nodes {
		conns += len(n.Connections)
	}
	return Status{NodeCount: len(m.nodes), ConnectionCount: conns, Topology: m.cfg.Topology}
}
