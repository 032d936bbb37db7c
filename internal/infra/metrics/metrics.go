// Package metrics exposes swarmd's Prometheus instrumentation. Vars are
// registered at package init via promauto, the same pattern the daemon's
// inference-side metrics package uses, just re-themed onto the
// orchestration domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "swarmd"

var (
	AgentsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "agents_by_status",
		Help:      "Number of registered agents currently in each status.",
	}, []string{"status"})

	AgentsByKind = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "agents_by_kind",
		Help:      "Number of registered agents of each kind.",
	}, []string{"kind"})

	TaskQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Number of tasks currently in each scheduler queue.",
	}, []string{"queue"})

	TasksDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_dispatched_total",
		Help:      "Total tasks dispatched to an agent.",
	}, []string{"task_type"})

	TasksFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_failed_total",
		Help:      "Total tasks that ended in Failed.",
	}, []string{"task_type"})

	TaskDispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "dispatch_latency_seconds",
		Help:      "Time from task submission to dispatch.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"priority"})

	MeshConnectionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mesh",
		Name:      "connection_count",
		Help:      "Total directed connections currently in the neural mesh.",
	})

	MeshAverageWeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mesh",
		Name:      "average_connection_weight",
		Help:      "Mean weight across all current mesh connections.",
	})

	ConsensusProposalsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "consensus",
		Name:      "proposals_open",
		Help:      "Number of proposals currently awaiting quorum.",
	})

	ConsensusOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consensus",
		Name:      "outcomes_total",
		Help:      "Total proposals resolved, by outcome.",
	}, []string{"outcome"})

	MemoryState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "resource",
		Name:      "memory_state",
		Help:      "Current memory hysteresis state (0=normal, 1=elevated, 2=critical).",
	})

	HealthOverall = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "health",
		Name:      "overall_status",
		Help:      "Aggregate health status (0=pass, 1=warn, 2=fail).",
	})
)
