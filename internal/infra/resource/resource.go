// Package resource samples process memory usage on a timer and
// classifies memory pressure into a hysteresis-banded state so callers
// see a stable signal instead of chattering across a single threshold.
// CPU usage is not sampled: snapshots leave CPUPercent at zero.
package resource

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
)

// Config tunes sampling cadence and the memory hysteresis bands.
type Config struct {
	TickInterval time.Duration

	// ElevatedEnter/ElevatedExit bound the Normal<->Elevated boundary;
	// CriticalEnter/CriticalExit bound Elevated<->Critical.
	ElevatedEnter float64
	ElevatedExit  float64
	CriticalEnter float64
	CriticalExit  float64

	// MemoryLimitBytes is the denominator for utilization; defaults to
	// runtime.MemStats.Sys if zero.
	MemoryLimitBytes uint64

	Now func() time.Time
}

// DefaultConfig returns the resource manager's production tuning.
func DefaultConfig() Config {
	return Config{
		TickInterval:  5 * time.Second,
		ElevatedEnter: 0.80,
		ElevatedExit:  0.72,
		CriticalEnter: 0.93,
		CriticalExit:  0.88,
		Now:           time.Now,
	}
}

// Manager samples resource usage and exposes the current snapshot.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	state domain.MemoryState
	last  domain.ResourceSnapshot

	activeAgents    int64
	concurrentTasks int64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Manager in the Normal memory state.
func New(cfg Config) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, state: domain.MemoryNormal, stopCh: make(chan struct{})}
}

// SetActiveAgents updates the active-agent gauge sampled into snapshots.
func (m *Manager) SetActiveAgents(n int) { atomic.StoreInt64(&m.activeAgents, int64(n)) }

// SetConcurrentTasks updates the concurrent-task gauge sampled into
// snapshots.
func (m *Manager) SetConcurrentTasks(n int) { atomic.StoreInt64(&m.concurrentTasks, int64(n)) }

// Sample takes one reading and updates the hysteresis state.
func (m *Manager) Sample() domain.ResourceSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	limit := m.cfg.MemoryLimitBytes
	if limit == 0 {
		limit = ms.Sys
	}
	// Go has no portable RSS reading without shelling out or cgo, so
	// utilization is heap-in-use over Sys rather than true RSS over a
	// configured limit; close enough for the hysteresis bands below,
	// which only care about the trend.
	var utilization float64
	if limit > 0 {
		utilization = float64(ms.HeapAlloc) / float64(limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nextState(m.state, utilization, m.cfg)

	snap := domain.ResourceSnapshot{
		RSSBytes:          ms.Sys,
		HeapBytes:         ms.HeapAlloc,
		ExternalBytes:     ms.Sys - ms.HeapAlloc,
		MemoryUtilization: utilization,
		ActiveAgents:      int(atomic.LoadInt64(&m.activeAgents)),
		ConcurrentTasks:   int(atomic.LoadInt64(&m.concurrentTasks)),
		MemoryState:       m.state,
		SampledAt:         m.cfg.Now(),
	}
	m.last = snap
	return snap
}

// nextState applies the hysteresis bands to decide the next memory
// state given the current one and a fresh utilization reading.
func nextState(current domain.MemoryState, utilization float64, cfg Config) domain.MemoryState {
	switch current {
	case domain.MemoryNormal:
		if utilization > cfg.ElevatedEnter {
			return domain.MemoryElevated
		}
	case domain.MemoryElevated:
		if utilization > cfg.CriticalEnter {
			return domain.MemoryCritical
		}
		if utilization < cfg.ElevatedExit {
			return domain.MemoryNormal
		}
	case domain.MemoryCritical:
		if utilization < cfg.CriticalExit {
			return domain.MemoryElevated
		}
	}
	return current
}

// Last returns the most recent snapshot without sampling again.
func (m *Manager) Last() domain.ResourceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Run starts the sampling tick in the background and returns at once;
// the tick runs until ctx is cancelled or Stop is called.
func (m *Manager) Run(ctx interface{ Done() <-chan struct{} }) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.TickInterval)
		defer ticker.Stop()
		m.Sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Sample()
			}
		}
	}()
}

// Stop halts the sampling tick. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
