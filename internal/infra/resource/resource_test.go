package resource

import (
	"testing"

	"github.com/tutu-network/swarmd/internal/domain"
)

func TestNextStateHysteresisNormalToElevated(t *testing.T) {
	cfg := DefaultConfig()
	if got := nextState(domain.MemoryNormal, 0.75, cfg); got != domain.MemoryNormal {
		t.Fatalf("got %v, want Normal below enter threshold", got)
	}
	if got := nextState(domain.MemoryNormal, 0.85, cfg); got != domain.MemoryElevated {
		t.Fatalf("got %v, want Elevated above enter threshold", got)
	}
}

func TestNextStateHysteresisDoesNotFlapAtBoundary(t *testing.T) {
	cfg := DefaultConfig()
	// Elevated at 0.75 should not drop back to Normal: below enter (0.80)
	// but above exit (0.72).
	if got := nextState(domain.MemoryElevated, 0.75, cfg); got != domain.MemoryElevated {
		t.Fatalf("got %v, want to remain Elevated inside the hysteresis band", got)
	}
	if got := nextState(domain.MemoryElevated, 0.70, cfg); got != domain.MemoryNormal {
		t.Fatalf("got %v, want Normal once below exit threshold", got)
	}
}

func TestNextStateElevatedToCritical(t *testing.T) {
	cfg := DefaultConfig()
	if got := nextState(domain.MemoryElevated, 0.95, cfg); got != domain.MemoryCritical {
		t.Fatalf("got %v, want Critical above 0.93", got)
	}
}

func TestNextStateCriticalToElevated(t *testing.T) {
	cfg := DefaultConfig()
	if got := nextState(domain.MemoryCritical, 0.90, cfg); got != domain.MemoryCritical {
		t.Fatalf("got %v, want to remain Critical above exit threshold 0.88", got)
	}
	if got := nextState(domain.MemoryCritical, 0.85, cfg); got != domain.MemoryElevated {
		t.Fatalf("got %v, want Elevated once below 0.88", got)
	}
}

func TestSampleProducesSnapshot(t *testing.T) {
	m := New(DefaultConfig())
	m.SetActiveAgents(3)
	m.SetConcurrentTasks(7)
	snap := m.Sample()
	if snap.ActiveAgents != 3 || snap.ConcurrentTasks != 7 {
		t.Fatalf("got %+v, want active=3 concurrent=7", snap)
	}
	if snap.SampledAt.IsZero() {
		t.Fatal("expected non-zero SampledAt")
	}
}
