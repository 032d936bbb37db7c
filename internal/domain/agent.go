// Package domain holds the pure data types shared by every subsystem:
// agents, capabilities, tasks, mesh nodes, proposals, and the error
// taxonomy. Nothing in this package depends on infrastructure — no
// mutexes, no timers, no I/O.
package domain

import "time"

// AgentKind is the closed set of agent archetypes the registry accepts.
type AgentKind string

const (
	CodeWorker           AgentKind = "code_worker"
	DataWorker           AgentKind = "data_worker"
	ValidationWorker     AgentKind = "validation_worker"
	SwarmCoordinator     AgentKind = "swarm_coordinator"
	ConsensusCoordinator AgentKind = "consensus_coordinator"
	TopologyCoordinator  AgentKind = "topology_coordinator"
	MCPBridge            AgentKind = "mcp_bridge"
	A2ABridge            AgentKind = "a2a_bridge"
)

// IsValid reports whether k is a recognized agent kind.
func (k AgentKind) IsValid() bool {
	switch k {
	case CodeWorker, DataWorker, ValidationWorker, SwarmCoordinator,
		ConsensusCoordinator, TopologyCoordinator, MCPBridge, A2ABridge:
		return true
	}
	return false
}

// AgentStatus tracks an agent's position in the registry's status machine.
type AgentStatus string

const (
	StatusInitializing AgentStatus = "initializing"
	StatusRunning      AgentStatus = "running"
	StatusIdle         AgentStatus = "idle"
	StatusBusy         AgentStatus = "busy"
	StatusError        AgentStatus = "error"
	StatusShuttingDown AgentStatus = "shutting_down"
	StatusOffline      AgentStatus = "offline"
)

// Available reports whether an agent in this status can receive new work.
func (s AgentStatus) Available() bool {
	return s == StatusIdle || s == StatusRunning
}

// AgentIdentity is the opaque, process-lifetime-unique handle for an agent.
// It is safe to copy and hold externally; it is never reused after
// unregistration.
type AgentIdentity struct {
	ID      string    `json:"id"`
	Kind    AgentKind `json:"kind"`
	Version string    `json:"version"`
}

// Capability is a named, versioned competence an agent declares at
// registration. An agent's capability set is immutable thereafter.
type Capability struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ResourceRequirements describes what an agent declares it needs to run.
type ResourceRequirements struct {
	CPUCores    float64 `json:"cpu_cores"`
	MemoryMB    int     `json:"memory_mb"`
	StorageMB   int     `json:"storage_mb"`
	BandwidthMbps int   `json:"bandwidth_mbps"`
}

// NetworkDescriptor is an opaque address/transport hint for an agent.
// The core never dials it; bridges are free to interpret it.
type NetworkDescriptor struct {
	Endpoint  string `json:"endpoint,omitempty"`
	Transport string `json:"transport,omitempty"`
}

// AgentRecord is the registry's full view of a registered agent. Only the
// Registry mutates its Status/LastUpdatedAt fields; every other field is
// fixed at registration.
type AgentRecord struct {
	Identity     AgentIdentity         `json:"identity"`
	Capabilities []Capability          `json:"capabilities"`
	Resources    ResourceRequirements  `json:"resources"`
	Network      NetworkDescriptor     `json:"network"`
	Status       AgentStatus           `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	LastUpdatedAt time.Time            `json:"last_updated_at"`
}

// HasCapabilities reports whether the agent declares every capability
// name in required. An empty required set is trivially satisfied.
func (a AgentRecord) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(a.Capabilities))
	for _, c := range a.Capabilities {
		have[c.Name] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// HeartbeatMeta carries optional, free-form metadata attached to a
// heartbeat observation. Synthetic heartbeats set Synthetic=true.
type HeartbeatMeta struct {
	Synthetic bool           `json:"synthetic,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}
