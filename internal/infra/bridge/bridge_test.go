package bridge

import (
	"testing"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/infra/circuit"
)

func TestSendMessageReturnsAcknowledgement(t *testing.T) {
	b := New(KindMCP, circuit.DefaultConfig())
	resp, err := b.SendMessage("tool://lint", map[string]any{"file": "main.go"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if resp.Endpoint != "tool://lint" {
		t.Fatalf("Endpoint = %q, want tool://lint", resp.Endpoint)
	}
	if resp.Payload["acknowledged"] != true {
		t.Fatalf("Payload = %v, want acknowledged", resp.Payload)
	}
}

func TestSendMessageBlockedWhenBreakerOpen(t *testing.T) {
	now := time.Now()
	cfg := circuit.DefaultConfig()
	cfg.FailureThreshold = 1
	cfg.Now = func() time.Time { return now }
	b := New(KindA2A, cfg)
	b.breaker.RecordFailure()

	_, err := b.SendMessage("tool://peer", nil)
	if err == nil {
		t.Fatal("expected error while breaker is open")
	}
	derr, ok := err.(*domain.Error)
	if !ok || derr.Code != domain.ErrA2AError {
		t.Fatalf("got %v, want *domain.Error with ErrA2AError", err)
	}
}
