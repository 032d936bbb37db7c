package health

import (
	"fmt"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/infra/consensus"
	"github.com/tutu-network/swarmd/internal/infra/mesh"
	"github.com/tutu-network/swarmd/internal/infra/registry"
	"github.com/tutu-network/swarmd/internal/infra/resource"
	"github.com/tutu-network/swarmd/internal/infra/scheduler"
)

func result(name string, status domain.HealthStatus, msg string, now time.Time) domain.HealthCheckResult {
	return domain.HealthCheckResult{Name: name, Status: status, Message: msg, CheckedAt: now}
}

// SystemStatusCheck always passes; its presence signals the health
// monitor itself is alive and reachable.
func SystemStatusCheck() Check {
	return Check{Name: "system-status", Fn: func(now time.Time) domain.HealthCheckResult {
		return result("system-status", domain.HealthPass, "", now)
	}}
}

// MemoryUsageCheck reports the resource manager's current memory state:
// Critical fails the check, Elevated warns, Normal passes.
func MemoryUsageCheck(rm *resource.Manager) Check {
	return Check{Name: "memory-usage", Fn: func(now time.Time) domain.HealthCheckResult {
		snap := rm.Last()
		switch snap.MemoryState {
		case domain.MemoryCritical:
			return result("memory-usage", domain.HealthFail, "memory pressure critical", now)
		case domain.MemoryElevated:
			return result("memory-usage", domain.HealthWarn, "memory pressure elevated", now)
		default:
			return result("memory-usage", domain.HealthPass, "", now)
		}
	}}
}

// AgentRegistryCheck warns when no agents are registered, since the
// orchestrator has nothing to dispatch work to.
func AgentRegistryCheck(reg *registry.Registry) Check {
	return Check{Name: "agent-registry", Fn: func(now time.Time) domain.HealthCheckResult {
		if reg.Count() == 0 {
			return result("agent-registry", domain.HealthWarn, "no agents registered", now)
		}
		return result("agent-registry", domain.HealthPass, "", now)
	}}
}

// TaskSchedulerCheck warns when the pending queue has grown large enough
// to suggest the dispatch loop is falling behind.
func TaskSchedulerCheck(sched *scheduler.Scheduler, pendingWarnThreshold int) Check {
	return Check{Name: "task-scheduler", Fn: func(now time.Time) domain.HealthCheckResult {
		stats := sched.Stats()
		if stats.Pending > pendingWarnThreshold {
			return result("task-scheduler", domain.HealthWarn,
				fmt.Sprintf("pending queue depth %d exceeds %d", stats.Pending, pendingWarnThreshold), now)
		}
		return result("task-scheduler", domain.HealthPass, "", now)
	}}
}

// NeuralMeshCheck warns when the mesh has nodes but no connections among
// them, which usually indicates a rebuild failed silently.
func NeuralMeshCheck(m *mesh.Mesh) Check {
	return Check{Name: "neural-mesh", Fn: func(now time.Time) domain.HealthCheckResult {
		st := m.Status()
		if st.NodeCount > 1 && st.ConnectionCount == 0 {
			return result("neural-mesh", domain.HealthWarn, "nodes present with no connections", now)
		}
		return result("neural-mesh", domain.HealthPass, "", now)
	}}
}

// SwarmConsensusCheck warns when more proposals are open than the given
// threshold, suggesting the voting membership is stalled.
func SwarmConsensusCheck(mgr *consensus.Manager, openWarnThreshold int) Check {
	return Check{Name: "swarm-consensus", Fn: func(now time.Time) domain.HealthCheckResult {
		st := mgr.Status()
		if st.Open > openWarnThreshold {
			return result("swarm-consensus", domain.HealthWarn,
				fmt.Sprintf("%d proposals still open", st.Open), now)
		}
		return result("swarm-consensus", domain.HealthPass, "", now)
	}}
}
