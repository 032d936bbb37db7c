// Package orchestrator owns the startup and shutdown sequencing for
// every other subsystem, mirroring the daemon's own dependency-ordered
// construction and reverse-order teardown, generalized from a single
// inference daemon to the full agent/task/mesh/consensus stack.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tutu-network/swarmd/internal/api"
	"github.com/tutu-network/swarmd/internal/config"
	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
	"github.com/tutu-network/swarmd/internal/health"
	"github.com/tutu-network/swarmd/internal/infra/bridge"
	"github.com/tutu-network/swarmd/internal/infra/circuit"
	"github.com/tutu-network/swarmd/internal/infra/consensus"
	"github.com/tutu-network/swarmd/internal/infra/mesh"
	"github.com/tutu-network/swarmd/internal/infra/registry"
	"github.com/tutu-network/swarmd/internal/infra/resource"
	"github.com/tutu-network/swarmd/internal/infra/scheduler"
	"github.com/tutu-network/swarmd/internal/infra/store"
)

// Orchestrator wires every subsystem together and drives their
// lifecycle. Construction order is Config -> Resource/Health primitives
// -> Registry -> Scheduler/Mesh/Consensus -> Orchestrator itself;
// shutdown reverses that order, waiting for each subsystem's background
// work to finish before starting the next one's teardown.
type Orchestrator struct {
	cfg   config.Config
	Store store.Store
	Bus   *eventbus.Bus

	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Mesh      *mesh.Mesh
	Consensus *consensus.Manager
	Resource  *resource.Manager
	Health    *health.Monitor
	MCPBridge *bridge.Bridge
	A2ABridge *bridge.Bridge

	httpSrv *http.Server

	mu          sync.Mutex
	initialized bool
	shutdown    bool
	cancel      context.CancelFunc
}

// New constructs an Orchestrator from cfg and st but does not start any
// background goroutines; call Initialize for that.
func New(cfg config.Config, st store.Store) *Orchestrator {
	bus := eventbus.New()

	resCfg := resource.DefaultConfig()
	rm := resource.New(resCfg)

	reg := registry.New(registry.DefaultConfig(), bus)

	schedCfg := scheduler.DefaultConfig()
	sched := scheduler.New(schedCfg, reg, bus)

	meshCfg := mesh.DefaultConfig()
	if cfg.Mesh.Topology != "" {
		meshCfg.Topology = domain.TopologyKind(cfg.Mesh.Topology)
	}
	if cfg.Mesh.MaxConnections > 0 {
		meshCfg.MaxConnections = cfg.Mesh.MaxConnections
	}
	meshCfg.MaxRunDuration = time.Duration(cfg.Mesh.MaxRunDurationMs) * time.Millisecond
	nm := mesh.New(meshCfg, bus)

	consCfg := consensus.DefaultConfig()
	if cfg.Consensus.VotingTimeoutMs > 0 {
		consCfg.VotingTimeout = time.Duration(cfg.Consensus.VotingTimeoutMs) * time.Millisecond
	}
	cm := consensus.New(consCfg, reg, bus)

	checks := []health.Check{
		health.SystemStatusCheck(),
		health.MemoryUsageCheck(rm),
		health.AgentRegistryCheck(reg),
		health.TaskSchedulerCheck(sched, 500),
		health.NeuralMeshCheck(nm),
		health.SwarmConsensusCheck(cm, 10),
	}
	hm := health.New(checks, nil)
	hm.SetBus(bus)

	breakerCfg := circuit.DefaultConfig()
	mcpBridge := bridge.New(bridge.KindMCP, breakerCfg)
	a2aBridge := bridge.New(bridge.KindA2A, breakerCfg)

	return &Orchestrator{
		cfg:       cfg,
		Store:     st,
		Bus:       bus,
		Registry:  reg,
		Scheduler: sched,
		Mesh:      nm,
		Consensus: cm,
		Resource:  rm,
		Health:    hm,
		MCPBridge: mcpBridge,
		A2ABridge: a2aBridge,
	}
}

// Initialize starts every subsystem's background loop and wires the
// cross-subsystem event subscriptions. Calling it twice is a no-op.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		log.Printf("[orchestrator] Initialize called twice; ignoring")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.Resource.Run(runCtx)
	o.Registry.Run(runCtx)
	o.Scheduler.Run(runCtx)
	o.Mesh.Run(runCtx)
	o.Consensus.Run(runCtx)
	o.Health.Start(time.Minute)

	o.wireMetrics()

	o.Bus.Subscribe(eventbus.AgentRegistered, func(e eventbus.Event) {
		if rec, ok := e.Payload.(domain.AgentRecord); ok {
			o.Mesh.Join(rec.Identity.ID)
		}
	})
	o.Bus.Subscribe(eventbus.AgentUnregistered, func(e eventbus.Event) {
		if id, ok := e.Payload.(string); ok {
			o.Mesh.Leave(id)
		}
	})
	o.Bus.Subscribe(eventbus.AgentStatusChanged, func(e eventbus.Event) {
		rec, ok := e.Payload.(domain.AgentRecord)
		if !ok {
			return
		}
		if rec.Status == domain.StatusOffline || rec.Status == domain.StatusError {
			o.Scheduler.DemoteRunning(rec.Identity.ID)
		}
	})

	if o.cfg.Networking.MetricsEnabled && o.cfg.Networking.DefaultPort > 0 {
		srv := api.NewServer(o.Registry, o.Scheduler, o.Mesh, o.Consensus, o.Resource, o.Health)
		o.httpSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", o.cfg.Networking.DefaultPort),
			Handler: srv.Handler(),
		}
		go func() {
			if err := o.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[orchestrator] http status surface stopped: %v", err)
			}
		}()
	}

	o.initialized = true
	return nil
}

// Shutdown stops every subsystem in reverse construction order, waiting
// for each to finish before moving to the next. Calling it twice is a
// no-op.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shutdown || !o.initialized {
		log.Printf("[orchestrator] Shutdown called twice (or before Initialize); ignoring")
		o.shutdown = true
		return nil
	}
	o.shutdown = true

	if o.cancel != nil {
		o.cancel()
	}

	if o.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[orchestrator] http status surface shutdown: %v", err)
		}
		cancel()
	}

	o.Health.Stop()
	o.Consensus.Stop()
	o.Mesh.Stop()
	o.Scheduler.Stop()
	o.Registry.Stop()
	o.Resource.Stop()

	if o.Store != nil {
		if err := o.Store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}

// RunUntilSignal blocks until ctx is cancelled or the process receives
// SIGINT/SIGTERM, then shuts down with a bounded grace period.
func RunUntilSignal(ctx context.Context, o *Orchestrator, gracePeriod time.Duration) error {
	if err := o.Initialize(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()
	return o.Shutdown(shutdownCtx)
}
