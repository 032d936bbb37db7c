package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
	"github.com/tutu-network/swarmd/internal/health"
	"github.com/tutu-network/swarmd/internal/infra/registry"
)

func TestHealthzReportsOverallStatus(t *testing.T) {
	hm := health.New(nil, nil)
	hm.RunOnce()

	s := NewServer(nil, nil, nil, nil, nil, hm)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with no checks registered", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != string(domain.HealthPass) {
		t.Fatalf("status = %v, want pass", body["status"])
	}
}

func TestStatusIncludesRegistryCount(t *testing.T) {
	bus := eventbus.New()
	reg := registry.New(registry.DefaultConfig(), bus)
	reg.Register(domain.AgentRecord{Identity: domain.AgentIdentity{ID: "a1", Kind: domain.CodeWorker}})

	s := NewServer(reg, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	regSection, ok := body["registry"].(map[string]any)
	if !ok {
		t.Fatalf("registry section missing or wrong type: %v", body["registry"])
	}
	if regSection["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1", regSection["count"])
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
