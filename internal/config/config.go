// Package config loads and validates swarmd's JSON configuration file.
// The shape and load/fallback/save-defaults behavior mirror the
// daemon's original TOML config loader; only the file format and the
// section names differ.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SystemConfig holds process-wide tuning.
type SystemConfig struct {
	MaxAgents         int    `json:"max_agents"`
	HeartbeatInterval int    `json:"heartbeat_interval_ms"`
	LogLevel          string `json:"log_level"`
}

// NetworkingConfig holds the HTTP status/health/metrics surface settings.
type NetworkingConfig struct {
	DefaultPort     int  `json:"default_port"`
	MetricsEnabled  bool `json:"metrics_enabled"`
}

// MeshConfig holds neural mesh defaults.
type MeshConfig struct {
	Topology         string `json:"topology"`
	MaxConnections   int    `json:"max_connections"`
	MaxRunDurationMs int64  `json:"max_run_duration_ms"`
}

// SwarmConfig holds swarm-run defaults.
type SwarmConfig struct {
	Algorithm        string `json:"algorithm"`
	MaxRunDurationMs int64  `json:"max_run_duration_ms"`
}

// ConsensusConfig holds voting defaults.
type ConsensusConfig struct {
	MinVotes       int   `json:"min_votes"`
	VotingTimeoutMs int64 `json:"voting_timeout_ms"`
}

// BridgesConfig holds MCP/A2A bridge endpoint stubs.
type BridgesConfig struct {
	MCPEndpoint string `json:"mcp_endpoint,omitempty"`
	A2AEndpoint string `json:"a2a_endpoint,omitempty"`
}

// GPUConfig holds GPU probe cache tuning.
type GPUConfig struct {
	ProbeCacheTTLMs int64 `json:"probe_cache_ttl_ms"`
	DisableProbeCache bool `json:"disable_probe_cache"`
}

// Config is the full, merged configuration tree.
type Config struct {
	System     SystemConfig     `json:"system"`
	Networking NetworkingConfig `json:"networking"`
	Mesh       MeshConfig       `json:"mesh"`
	Swarm      SwarmConfig      `json:"swarm"`
	Consensus  ConsensusConfig  `json:"consensus"`
	Bridges    BridgesConfig    `json:"bridges"`
	GPU        GPUConfig        `json:"gpu"`
}

// DefaultConfig returns swarmd's built-in configuration.
func DefaultConfig() Config {
	return Config{
		System: SystemConfig{
			MaxAgents:         256,
			HeartbeatInterval: 20000,
			LogLevel:          "info",
		},
		Networking: NetworkingConfig{
			DefaultPort:    9595,
			MetricsEnabled: true,
		},
		Mesh: MeshConfig{
			Topology:         "mesh",
			MaxConnections:   5,
			MaxRunDurationMs: 3600000,
		},
		Swarm: SwarmConfig{
			Algorithm:        "capability_match",
			MaxRunDurationMs: 0,
		},
		Consensus: ConsensusConfig{
			MinVotes:        1,
			VotingTimeoutMs: 30000,
		},
		Bridges: BridgesConfig{},
		GPU: GPUConfig{
			ProbeCacheTTLMs: 300000,
		},
	}
}

// swarmdHome returns the config directory, ~/.swarmd. It does not read
// SWARMD_CONFIG; ConfigPath applies that override.
func swarmdHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".swarmd"), nil
}

// ConfigPath resolves the on-disk config file location, honoring the
// SWARMD_CONFIG environment variable override.
func ConfigPath() (string, error) {
	if p := os.Getenv("SWARMD_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := swarmdHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file at path (or the resolved default path if
// path is empty), deep-merging it onto DefaultConfig. If the file does
// not exist, defaults are written back to path and returned. The result
// is validated and environment overrides are applied before returning.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := save(path, cfg); err != nil {
			return Config{}, fmt.Errorf("write default config: %w", err)
		}
		applyEnvOverrides(&cfg)
		return cfg, Validate(cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := mergeJSON(&cfg, data); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeJSON deep-merges the JSON document in data onto cfg. Because
// encoding/json only ever sets fields present in the document, decoding
// directly into the populated default struct gives us last-write-wins
// merge semantics for scalars and whole-value replacement for arrays,
// without hand-written merge logic per section.
func mergeJSON(cfg *Config, data []byte) error {
	return json.Unmarshal(data, cfg)
}

func save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg Config) error {
	return save(path, cfg)
}

// Validate checks every cross-field invariant the orchestrator depends
// on, aggregating every violation into a single error rather than
// failing on the first one.
func Validate(cfg Config) error {
	var problems []string
	if cfg.System.MaxAgents <= 0 {
		problems = append(problems, "system.max_agents must be > 0")
	}
	if cfg.System.HeartbeatInterval < 1000 {
		problems = append(problems, "system.heartbeat_interval_ms must be >= 1000")
	}
	if cfg.Networking.DefaultPort < 1 || cfg.Networking.DefaultPort > 65535 {
		problems = append(problems, "networking.default_port must be in [1, 65535]")
	}
	if cfg.Consensus.MinVotes < 1 {
		problems = append(problems, "consensus.min_votes must be >= 1")
	}
	if cfg.Mesh.MaxRunDurationMs < 0 {
		problems = append(problems, "mesh.max_run_duration_ms must be >= 0")
	}
	if cfg.Swarm.MaxRunDurationMs < 0 {
		problems = append(problems, "swarm.max_run_duration_ms must be >= 0")
	}
	if cfg.GPU.ProbeCacheTTLMs < 0 {
		problems = append(problems, "gpu.probe_cache_ttl_ms must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// applyEnvOverrides layers the documented environment variables on top
// of whatever was loaded from disk.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWARMD_LOG_LEVEL"); v != "" {
		cfg.System.LogLevel = v
	}
	if v := os.Getenv("SWARMD_MAX_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.System.MaxAgents = n
		}
	}
	if v := os.Getenv("SWARMD_DISABLE_GPU_PROBE_CACHE"); v == "1" || strings.EqualFold(v, "true") {
		cfg.GPU.DisableProbeCache = true
	}
}
