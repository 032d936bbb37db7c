package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tutu-network/swarmd/internal/config"
	"github.com/tutu-network/swarmd/internal/infra/store"
	"github.com/tutu-network/swarmd/internal/orchestrator"
)

// loadConfig reads swarmd's config file, honoring SWARMD_CONFIG, falling
// back to and persisting the built-in defaults on first run.
func loadConfig() (config.Config, error) {
	return config.Load("")
}

// newOrchestrator builds an Orchestrator over an in-memory store. Every
// CLI command constructs its own in-process instance and tears it down
// before returning; state does not survive past the invocation, the same
// way the teacher's own CLI commands build a fresh daemon each call.
func newOrchestrator(cfg config.Config) *orchestrator.Orchestrator {
	return orchestrator.New(cfg, store.NewMemStore())
}

// withOrchestrator loads config, constructs and initializes an
// Orchestrator, runs fn against it, and shuts it down on the way out
// regardless of fn's outcome.
func withOrchestrator(fn func(ctx context.Context, o *orchestrator.Orchestrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return opError(fmt.Errorf("load config: %w", err))
	}

	o := newOrchestrator(cfg)
	ctx := context.Background()
	if err := o.Initialize(ctx); err != nil {
		return opError(fmt.Errorf("initialize: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.Shutdown(shutdownCtx)
	}()

	return fn(ctx, o)
}

// newTabWriter returns a tabwriter configured the way the teacher's list
// commands format columns.
func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

// printJSON writes v to stdout as indented JSON, for commands whose
// output is a structured snapshot rather than a table.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseJSONObject parses s as a JSON object, or returns nil for an empty
// string. Used for --data/--params flags that accept a JSON blob.
func parseJSONObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, usageErrorf("invalid JSON: %v", err)
	}
	return m, nil
}
