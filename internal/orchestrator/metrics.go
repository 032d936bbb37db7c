package orchestrator

import (
	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
	"github.com/tutu-network/swarmd/internal/health"
	"github.com/tutu-network/swarmd/internal/infra/mesh"
	"github.com/tutu-network/swarmd/internal/infra/metrics"
)

// wireMetrics subscribes to every event the orchestrator fans out and
// keeps the Prometheus gauges/counters in internal/infra/metrics current.
// It is deliberately a pure subscriber: metrics never feeds back into any
// subsystem's own state, only observes it, matching the read-only
// accessor discipline the rest of the orchestrator follows.
func (o *Orchestrator) wireMetrics() {
	refreshAgents := func(eventbus.Event) {
		byStatus := make(map[domain.AgentStatus]int)
		byKind := make(map[domain.AgentKind]int)
		for _, rec := range o.Registry.All() {
			byStatus[rec.Status]++
			byKind[rec.Identity.Kind]++
		}
		for _, s := range []domain.AgentStatus{
			domain.StatusInitializing, domain.StatusRunning, domain.StatusIdle,
			domain.StatusBusy, domain.StatusError, domain.StatusShuttingDown, domain.StatusOffline,
		} {
			metrics.AgentsByStatus.WithLabelValues(string(s)).Set(float64(byStatus[s]))
		}
		for kind, n := range byKind {
			metrics.AgentsByKind.WithLabelValues(string(kind)).Set(float64(n))
		}
	}
	o.Bus.Subscribe(eventbus.AgentRegistered, refreshAgents)
	o.Bus.Subscribe(eventbus.AgentUnregistered, refreshAgents)
	o.Bus.Subscribe(eventbus.AgentStatusChanged, refreshAgents)

	refreshQueue := func(eventbus.Event) {
		stats := o.Scheduler.Stats()
		metrics.TaskQueueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
		metrics.TaskQueueDepth.WithLabelValues("running").Set(float64(stats.Running))
		metrics.TaskQueueDepth.WithLabelValues("archived").Set(float64(stats.Archived))
	}
	o.Bus.Subscribe(eventbus.TaskSubmitted, refreshQueue)
	o.Bus.Subscribe(eventbus.TaskAssigned, func(e eventbus.Event) {
		refreshQueue(e)
		if t, ok := e.Payload.(domain.Task); ok {
			metrics.TasksDispatchedTotal.WithLabelValues(string(t.Type)).Inc()
		}
	})
	o.Bus.Subscribe(eventbus.TaskCompleted, refreshQueue)
	o.Bus.Subscribe(eventbus.TaskFailed, func(e eventbus.Event) {
		refreshQueue(e)
		if t, ok := e.Payload.(domain.Task); ok {
			metrics.TasksFailedTotal.WithLabelValues(string(t.Type)).Inc()
		}
	})

	o.Bus.Subscribe(eventbus.TopologyUpdated, func(e eventbus.Event) {
		topo, ok := e.Payload.(mesh.MeshTopology)
		if !ok {
			return
		}
		metrics.MeshConnectionCount.Set(float64(topo.ConnectionCount))
		avgWeight := 0.0
		total, n := 0.0, 0
		for _, node := range topo.Nodes {
			for _, c := range node.Connections {
				total += c.Weight
				n++
			}
		}
		if n > 0 {
			avgWeight = total / float64(n)
		}
		metrics.MeshAverageWeight.Set(avgWeight)
	})

	refreshConsensus := func(eventbus.Event) {
		st := o.Consensus.Status()
		metrics.ConsensusProposalsOpen.Set(float64(st.Open))
	}
	o.Bus.Subscribe(eventbus.ProposalCreated, refreshConsensus)
	o.Bus.Subscribe(eventbus.ConsensusReached, func(e eventbus.Event) {
		refreshConsensus(e)
		if p, ok := e.Payload.(domain.Proposal); ok {
			metrics.ConsensusOutcomesTotal.WithLabelValues(string(p.Status)).Inc()
		}
	})

	o.Bus.Subscribe(eventbus.HealthCheck, func(e eventbus.Event) {
		report, ok := e.Payload.(health.Report)
		if !ok {
			return
		}
		metrics.HealthOverall.Set(metrics.HealthStatusValue(report.Overall))
		metrics.MemoryState.Set(metrics.MemoryStateValue(o.Resource.Last().MemoryState))
	})
}
