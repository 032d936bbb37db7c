// Package api exposes swarmd's read-only HTTP status surface: a health
// check, Prometheus metrics, and a snapshot of every subsystem's status.
// It carries no authentication and accepts no mutating requests, since
// task/agent control is only reachable through the programmatic
// Orchestrator contract, not over the network — the spec's Non-goal on
// authenticated network transport is about control, not observability.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/health"
	"github.com/tutu-network/swarmd/internal/infra/consensus"
	"github.com/tutu-network/swarmd/internal/infra/mesh"
	"github.com/tutu-network/swarmd/internal/infra/registry"
	"github.com/tutu-network/swarmd/internal/infra/resource"
	"github.com/tutu-network/swarmd/internal/infra/scheduler"
)

// Server is swarmd's HTTP status surface. It never mutates any subsystem;
// every handler reads through value-copying accessor methods only.
type Server struct {
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	mesh      *mesh.Mesh
	consensus *consensus.Manager
	resource  *resource.Manager
	health    *health.Monitor
}

// NewServer constructs a Server over the given subsystems. Any argument
// may be nil, in which case its section of /status is omitted.
func NewServer(reg *registry.Registry, sched *scheduler.Scheduler, nm *mesh.Mesh, cm *consensus.Manager, rm *resource.Manager, hm *health.Monitor) *Server {
	return &Server{registry: reg, scheduler: sched, mesh: nm, consensus: cm, resource: rm, health: hm}
}

// Handler returns the chi router with every route mounted, following the
// same middleware stack (RequestID, RealIP, Recoverer, bounded Timeout)
// the teacher's own HTTP server uses.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", s.handleStatus)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unknown"})
		return
	}
	overall := s.health.Overall()
	status := http.StatusOK
	if overall == domain.HealthFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": s.health.Results(),
	})
}

// statusResponse is the snapshot /status returns: every subsystem's own
// status summary, value-copied, never an alias into its internals.
type statusResponse struct {
	Registry  any `json:"registry,omitempty"`
	Scheduler any `json:"scheduler,omitempty"`
	Mesh      any `json:"mesh,omitempty"`
	Consensus any `json:"consensus,omitempty"`
	Resource  any `json:"resource,omitempty"`
	Health    any `json:"health,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	if s.registry != nil {
		resp.Registry = map[string]int{"count": s.registry.Count()}
	}
	if s.scheduler != nil {
		resp.Scheduler = s.scheduler.Stats()
	}
	if s.mesh != nil {
		resp.Mesh = s.mesh.Status()
	}
	if s.consensus != nil {
		resp.Consensus = s.consensus.Status()
	}
	if s.resource != nil {
		resp.Resource = s.resource.Last()
	}
	if s.health != nil {
		resp.Health = map[string]any{"overall": s.health.Overall(), "checks": s.health.Results()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
