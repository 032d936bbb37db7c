package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/tutu-network/swarmd/internal/config"
	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/infra/store"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	// Keep the status surface off the network during tests the same way a
	// disabled-port daemon config is used in the teacher's own tests.
	cfg.Networking.MetricsEnabled = false
	return cfg
}

func TestNewWiresEverySubsystem(t *testing.T) {
	o := New(testConfig(), store.NewMemStore())

	if o.Registry == nil || o.Scheduler == nil || o.Mesh == nil ||
		o.Consensus == nil || o.Resource == nil || o.Health == nil {
		t.Fatal("New() left a subsystem nil")
	}
	if o.MCPBridge == nil || o.A2ABridge == nil {
		t.Fatal("New() left a bridge nil")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	o := New(testConfig(), store.NewMemStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := o.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := o.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() error = %v, want nil (no-op)", err)
	}

	shutdownCtx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer scancel()
	if err := o.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestShutdownBeforeInitializeIsSafe(t *testing.T) {
	o := New(testConfig(), store.NewMemStore())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() before Initialize() error = %v, want nil", err)
	}
}

func TestAgentRegistrationJoinsMesh(t *testing.T) {
	o := New(testConfig(), store.NewMemStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := o.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer func() {
		shutdownCtx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		o.Shutdown(shutdownCtx)
	}()

	if _, err := o.Registry.Register(domain.AgentRecord{
		Identity: domain.AgentIdentity{ID: "a1", Kind: domain.CodeWorker},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if o.Mesh.Status().NodeCount == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("mesh node count = %d, want 1 after agent registration", o.Mesh.Status().NodeCount)
}
