package cli

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmd/internal/orchestrator"
)

func init() {
	systemCmd.AddCommand(systemStartCmd, systemStopCmd, systemStatusCmd, systemMonitorCmd)
	systemMonitorCmd.Flags().IntVar(&monitorIntervalMs, "interval", 2000, "poll interval in milliseconds")
	rootCmd.AddCommand(systemCmd)
}

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Start, stop, and inspect the orchestration runtime",
}

var systemStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Initialize every subsystem and block until shutdown",
	Args:  exactArgs(0, "system start"),
	RunE:  runSystemStart,
}

func runSystemStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return opError(fmt.Errorf("load config: %w", err))
	}
	if err := writePIDFile("swarmd", pidOf()); err != nil {
		return opError(fmt.Errorf("write pidfile: %w", err))
	}
	defer removePIDFile("swarmd")

	o := newOrchestrator(cfg)
	fmt.Println("swarmd: system starting, awaiting SIGINT/SIGTERM")
	if err := orchestrator.RunUntilSignal(context.Background(), o, 15*time.Second); err != nil {
		return opError(err)
	}
	fmt.Println("swarmd: system shut down cleanly")
	return nil
}

var systemStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running `system start` (or `background start`) process to shut down",
	Args:  exactArgs(0, "system stop"),
	RunE:  runSystemStop,
}

func runSystemStop(cmd *cobra.Command, args []string) error {
	pid, err := readPIDFile("swarmd")
	if err != nil {
		return opError(err)
	}
	if pid == 0 || !processAlive(pid) {
		return opError(fmt.Errorf("no running swarmd process found"))
	}
	proc, err := processFindAndSignal(pid, syscall.SIGTERM)
	if err != nil {
		return opError(fmt.Errorf("signal pid %d: %w", pid, err))
	}
	_ = proc
	fmt.Printf("swarmd: sent shutdown signal to pid %d\n", pid)
	return nil
}

var systemStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a snapshot of every subsystem's status",
	Args:  exactArgs(0, "system status"),
	RunE:  runSystemStatus,
}

func runSystemStatus(cmd *cobra.Command, args []string) error {
	pid, _ := readPIDFile("swarmd")
	background := pid != 0 && processAlive(pid)

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		snap := statusSnapshot(o)
		snap["background_process"] = map[string]any{"running": background, "pid": pid}
		return printJSON(snap)
	})
}

var monitorIntervalMs int

var systemMonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print a status snapshot on a fixed interval until interrupted",
	Args:  exactArgs(0, "system monitor [--interval ms]"),
	RunE:  runSystemMonitor,
}

func runSystemMonitor(cmd *cobra.Command, args []string) error {
	if monitorIntervalMs <= 0 {
		return usageErrorf("--interval must be > 0")
	}
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		ticker := time.NewTicker(time.Duration(monitorIntervalMs) * time.Millisecond)
		defer ticker.Stop()

		printJSON(statusSnapshot(o))
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := printJSON(statusSnapshot(o)); err != nil {
					return opError(err)
				}
			}
		}
	})
}

// statusSnapshot mirrors internal/api's /status payload, reusing the same
// value-copying accessors so the CLI and HTTP surface never drift.
func statusSnapshot(o *orchestrator.Orchestrator) map[string]any {
	return map[string]any{
		"registry":  map[string]int{"count": o.Registry.Count()},
		"scheduler": o.Scheduler.Stats(),
		"mesh":      o.Mesh.Status(),
		"consensus": o.Consensus.Status(),
		"resource":  o.Resource.Last(),
		"health":    map[string]any{"overall": o.Health.Overall(), "checks": o.Health.Results()},
	}
}
