package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.System.MaxAgents != DefaultConfig().System.MaxAgents {
		t.Fatalf("got MaxAgents %d, want default", cfg.System.MaxAgents)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written, stat error = %v", err)
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"system":{"max_agents":10}}`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.System.MaxAgents != 10 {
		t.Fatalf("MaxAgents = %d, want 10 from file", cfg.System.MaxAgents)
	}
	if cfg.Networking.DefaultPort != DefaultConfig().Networking.DefaultPort {
		t.Fatalf("DefaultPort = %d, want default to survive merge", cfg.Networking.DefaultPort)
	}
}

func TestValidateAggregatesViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.MaxAgents = 0
	cfg.Networking.DefaultPort = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !contains(msg, "max_agents") || !contains(msg, "default_port") {
		t.Fatalf("expected both violations in error, got %q", msg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SWARMD_LOG_LEVEL", "debug")
	t.Setenv("SWARMD_MAX_AGENTS", "42")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)
	if cfg.System.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.System.LogLevel)
	}
	if cfg.System.MaxAgents != 42 {
		t.Fatalf("MaxAgents = %d, want 42", cfg.System.MaxAgents)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
