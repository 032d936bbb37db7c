package health

import (
	"testing"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
)

func TestOverallIsWorstOfResults(t *testing.T) {
	now := time.Now()
	m := New([]Check{
		{Name: "a", Fn: func(time.Time) domain.HealthCheckResult {
			return domain.HealthCheckResult{Name: "a", Status: domain.HealthPass}
		}},
		{Name: "b", Fn: func(time.Time) domain.HealthCheckResult {
			return domain.HealthCheckResult{Name: "b", Status: domain.HealthWarn}
		}},
	}, func() time.Time { return now })

	m.RunOnce()
	if got := m.Overall(); got != domain.HealthWarn {
		t.Fatalf("Overall() = %v, want Warn", got)
	}
}

func TestStartTwiceIsNoOp(t *testing.T) {
	m := New(nil, nil)
	if !m.Start(10 * time.Millisecond) {
		t.Fatal("first Start() should succeed")
	}
	defer m.Stop()
	if m.Start(10 * time.Millisecond) {
		t.Fatal("second Start() without Stop should be a no-op")
	}
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	m := New(nil, nil)
	m.Stop()
}

func TestResultsReflectLatestRun(t *testing.T) {
	calls := 0
	m := New([]Check{
		{Name: "counter", Fn: func(now time.Time) domain.HealthCheckResult {
			calls++
			return domain.HealthCheckResult{Name: "counter", Status: domain.HealthPass, CheckedAt: now}
		}},
	}, nil)

	m.RunOnce()
	m.RunOnce()
	if calls != 2 {
		t.Fatalf("expected check invoked twice, got %d", calls)
	}
	if len(m.Results()) != 1 {
		t.Fatalf("Results() length = %d, want 1", len(m.Results()))
	}
}
