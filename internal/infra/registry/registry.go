// Package registry is the authoritative store of agent membership. It is
// the sole publisher onto the event bus for everything agent-related;
// every other subsystem learns about agents only by subscribing, never by
// importing this package's internals.
package registry

import (
	"sync"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
)

// Config tunes the registry's background sweeps.
type Config struct {
	LivenessInterval     time.Duration
	LivenessTimeout      time.Duration
	SyntheticHeartbeatInterval time.Duration
	IdleHeartbeatAge     time.Duration
	Now                  func() time.Time
}

// DefaultConfig returns the registry's production tuning.
func DefaultConfig() Config {
	return Config{
		LivenessInterval:           30 * time.Second,
		LivenessTimeout:            90 * time.Second,
		SyntheticHeartbeatInterval: 20 * time.Second,
		IdleHeartbeatAge:           45 * time.Second,
		Now:                        time.Now,
	}
}

// Registry holds every known agent, double-indexed by identity and by
// kind so lookups by either axis are O(1) plus a bounded scan of the
// matching bucket.
type Registry struct {
	cfg Config
	bus *eventbus.Bus

	mu      sync.RWMutex
	byID    map[string]*domain.AgentRecord
	byKind  map[domain.AgentKind]map[string]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Registry that publishes onto bus.
func New(cfg Config, bus *eventbus.Bus) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		cfg:    cfg,
		bus:    bus,
		byID:   make(map[string]*domain.AgentRecord),
		byKind: make(map[domain.AgentKind]map[string]struct{}),
		stopCh: make(chan struct{}),
	}
}

// Register adds a new agent. Re-registering an already-known ID is a
// no-op: the existing record is left untouched and no event is emitted.
func (r *Registry) Register(rec domain.AgentRecord) (*domain.AgentRecord, error) {
	if !rec.Identity.Kind.IsValid() {
		return nil, domain.Errorf(domain.ErrTaskInvalid, "unknown agent kind %q", rec.Identity.Kind)
	}
	r.mu.Lock()
	if _, exists := r.byID[rec.Identity.ID]; exists {
		r.mu.Unlock()
		return nil, nil
	}
	now := r.cfg.Now()
	rec.CreatedAt = now
	rec.LastUpdatedAt = now
	if rec.Status == "" {
		rec.Status = domain.StatusInitializing
	}
	stored := rec
	r.byID[rec.Identity.ID] = &stored
	bucket, ok := r.byKind[rec.Identity.Kind]
	if !ok {
		bucket = make(map[string]struct{})
		r.byKind[rec.Identity.Kind] = bucket
	}
	bucket[rec.Identity.ID] = struct{}{}
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(eventbus.AgentRegistered, stored)
	}
	return &stored, nil
}

// Unregister removes an agent. Unregistering an unknown ID is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	rec, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byID, id)
	if bucket, ok := r.byKind[rec.Identity.Kind]; ok {
		delete(bucket, id)
	}
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(eventbus.AgentUnregistered, id)
	}
}

// UpdateStatus transitions an agent's status and publishes the change.
// Updating an unknown agent's status returns ErrAgentNotFound.
func (r *Registry) UpdateStatus(id string, status domain.AgentStatus) error {
	r.mu.Lock()
	rec, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return domain.Errorf(domain.ErrAgentNotFound, "agent %q not registered", id)
	}
	prev := rec.Status
	rec.Status = status
	rec.LastUpdatedAt = r.cfg.Now()
	snapshot := *rec
	r.mu.Unlock()

	if r.bus != nil && prev != status {
		r.bus.Publish(eventbus.AgentStatusChanged, snapshot)
	}
	return nil
}

// AssignTask transitions id from Idle/Running to Busy as the scheduler
// hands it a task. It is the only entry point that enforces the
// precondition the scheduler relies on: an agent outside {Idle, Running}
// returns ErrAgentUnavailable and is left untouched.
func (r *Registry) AssignTask(id string) error {
	r.mu.Lock()
	rec, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return domain.Errorf(domain.ErrAgentNotFound, "agent %q not registered", id)
	}
	if !rec.Status.Available() {
		r.mu.Unlock()
		return domain.Errorf(domain.ErrAgentUnavailable, "agent %q is %s, not available for assignment", id, rec.Status)
	}
	prev := rec.Status
	rec.Status = domain.StatusBusy
	rec.LastUpdatedAt = r.cfg.Now()
	snapshot := *rec
	r.mu.Unlock()

	if r.bus != nil && prev != domain.StatusBusy {
		r.bus.Publish(eventbus.AgentStatusChanged, snapshot)
	}
	return nil
}

// Heartbeat refreshes an agent's liveness timestamp without changing its
// status. Heartbeating an unknown agent returns ErrAgentNotFound.
func (r *Registry) Heartbeat(id string, _ domain.HeartbeatMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.Errorf(domain.ErrAgentNotFound, "agent %q not registered", id)
	}
	rec.LastUpdatedAt = r.cfg.Now()
	return nil
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (domain.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.AgentRecord{}, domain.Errorf(domain.ErrAgentNotFound, "agent %q not registered", id)
	}
	return *rec, nil
}

// ListByKind returns a snapshot of every agent of the given kind.
func (r *Registry) ListByKind(kind domain.AgentKind) []domain.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AgentRecord
	for id := range r.byKind[kind] {
		out = append(out, *r.byID[id])
	}
	return out
}

// ListByCapability returns every registered agent that declares name.
func (r *Registry) ListByCapability(name string) []domain.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AgentRecord
	for _, rec := range r.byID {
		for _, c := range rec.Capabilities {
			if c.Name == name {
				out = append(out, *rec)
				break
			}
		}
	}
	return out
}

// ListAvailable returns every agent whose status is currently available
// for new work.
func (r *Registry) ListAvailable() []domain.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AgentRecord
	for _, rec := range r.byID {
		if rec.Status.Available() {
			out = append(out, *rec)
		}
	}
	return out
}

// Count returns the total number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// All returns a snapshot of every registered agent.
func (r *Registry) All() []domain.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AgentRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, *rec)
	}
	return out
}

// Run starts the liveness scan and synthetic-heartbeat background
// sweeps in the background and returns at once; they run until ctx is
// cancelled or Stop is called.
func (r *Registry) Run(ctx doneCtx) {
	r.wg.Add(2)
	go r.livenessLoop(ctx)
	go r.syntheticHeartbeatLoop(ctx)
}

// doneCtx is the minimal slice of context.Context this package needs,
// kept narrow so tests can supply a bare channel without importing
// context in the signature of Run itself.
type doneCtx interface {
	Done() <-chan struct{}
}

func (r *Registry) livenessLoop(ctx doneCtx) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.scanLiveness()
		}
	}
}

func (r *Registry) scanLiveness() {
	now := r.cfg.Now()
	r.mu.Lock()
	var stale []domain.AgentRecord
	for _, rec := range r.byID {
		if rec.Status == domain.StatusOffline {
			continue
		}
		if now.Sub(rec.LastUpdatedAt) > r.cfg.LivenessTimeout {
			rec.Status = domain.StatusOffline
			rec.LastUpdatedAt = now
			stale = append(stale, *rec)
		}
	}
	r.mu.Unlock()

	if r.bus != nil {
		for _, rec := range stale {
			r.bus.Publish(eventbus.AgentStatusChanged, rec)
		}
	}
}

func (r *Registry) syntheticHeartbeatLoop(ctx doneCtx) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.SyntheticHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweepIdleHeartbeats()
		}
	}
}

func (r *Registry) sweepIdleHeartbeats() {
	now := r.cfg.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		if rec.Status == domain.StatusIdle && now.Sub(rec.LastUpdatedAt) > r.cfg.IdleHeartbeatAge {
			rec.LastUpdatedAt = now
		}
	}
}

// Stop halts the background sweeps. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
