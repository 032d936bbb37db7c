package metrics

import (
	"testing"

	"github.com/tutu-network/swarmd/internal/domain"
)

func TestMemoryStateValue(t *testing.T) {
	cases := map[domain.MemoryState]float64{
		domain.MemoryNormal:   0,
		domain.MemoryElevated: 1,
		domain.MemoryCritical: 2,
	}
	for state, want := range cases {
		if got := MemoryStateValue(state); got != want {
			t.Errorf("MemoryStateValue(%v) = %v, want %v", state, got, want)
		}
	}
}

func TestHealthStatusValue(t *testing.T) {
	cases := map[domain.HealthStatus]float64{
		domain.HealthPass: 0,
		domain.HealthWarn: 1,
		domain.HealthFail: 2,
	}
	for status, want := range cases {
		if got := HealthStatusValue(status); got != want {
			t.Errorf("HealthStatusValue(%v) = %v, want %v", status, got, want)
		}
	}
}
