// Package bridge stubs the external MCP and A2A protocol surfaces.
// Neither protocol is implemented end-to-end here; each bridge logs the
// outbound call and returns a canned acknowledgement, wrapped in a
// circuit breaker so a misbehaving external endpoint can't cascade into
// the orchestrator's own goroutines.
package bridge

import (
	"log"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/infra/circuit"
)

// Response is the opaque result of a bridge call.
type Response struct {
	Endpoint  string         `json:"endpoint"`
	Payload   map[string]any `json:"payload,omitempty"`
	RepliedAt time.Time      `json:"replied_at"`
}

// Kind distinguishes the two supported protocol stubs, each carrying a
// distinct error code on failure.
type Kind string

const (
	KindMCP Kind = "mcp"
	KindA2A Kind = "a2a"
)

// Bridge sends opaque messages to an external endpoint through a
// circuit breaker.
type Bridge struct {
	kind    Kind
	breaker *circuit.Breaker
	now     func() time.Time
}

// New constructs a Bridge of the given kind, guarded by its own breaker.
func New(kind Kind, breakerCfg circuit.Config) *Bridge {
	if breakerCfg.Now == nil {
		breakerCfg.Now = time.Now
	}
	return &Bridge{kind: kind, breaker: circuit.New(breakerCfg), now: breakerCfg.Now}
}

// SendMessage delivers payload to endpoint. It is logged and
// canned-acknowledged rather than actually dialed out, since no live MCP
// or A2A counterpart is wired into this deployment; the breaker and
// error taxonomy are real so callers exercise the same failure paths
// they would against a live endpoint.
func (b *Bridge) SendMessage(endpoint string, payload map[string]any) (Response, error) {
	if !b.breaker.Allow() {
		return Response{}, b.errorFor("circuit open for endpoint %q", endpoint)
	}

	log.Printf("bridge[%s]: sending to %s: %v", b.kind, endpoint, payload)
	b.breaker.RecordSuccess()

	return Response{
		Endpoint:  endpoint,
		Payload:   map[string]any{"acknowledged": true},
		RepliedAt: b.now(),
	}, nil
}

func (b *Bridge) errorFor(format string, args ...any) *domain.Error {
	code := domain.ErrMCPError
	if b.kind == KindA2A {
		code = domain.ErrA2AError
	}
	return domain.Errorf(code, format, args...)
}
