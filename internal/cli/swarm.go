package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/orchestrator"
)

// swarm algorithms are out of core scope (spec.md §9's Non-goal on
// scheduling/topology algorithm implementations); these commands only
// surface start/stop/status of the mesh's own dynamic topology updates,
// as spec.md §6 documents.
func init() {
	swarmStartCmd.Flags().StringVar(&swarmAlgorithm, "algorithm", "capability_match", "named swarm algorithm (recorded, not executed)")
	swarmConfigureCmd.Flags().StringVar(&swarmConfigParams, "params", "", "JSON object of swarm parameters")
	swarmCmd.AddCommand(swarmStartCmd, swarmStopCmd, swarmStatusCmd, swarmConfigureCmd)
	rootCmd.AddCommand(swarmCmd)
}

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Start, stop, and inspect the mesh's dynamic topology updates",
}

var swarmAlgorithm string

var swarmStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the mesh's decay loop in the foreground until stopped",
	Args:  exactArgs(0, "swarm start [--algorithm A]"),
	RunE:  runSwarmStart,
}

func runSwarmStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return opError(fmt.Errorf("load config: %w", err))
	}
	cfg.Swarm.Algorithm = swarmAlgorithm

	if err := writePIDFile("swarm", pidOf()); err != nil {
		return opError(fmt.Errorf("write pidfile: %w", err))
	}
	defer removePIDFile("swarm")

	// Only the mesh's own dynamic-update loop is driven here, not the
	// full orchestrator lifecycle: spec.md §6 scopes `swarm` to
	// start/stop/status of the mesh's topology updates, and Mesh.Run has
	// no reentrancy guard, so it must not also be running via a separate
	// `system start`/`background start` process's Initialize call.
	o := newOrchestrator(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("swarm: running with algorithm=%s, awaiting SIGINT/SIGTERM\n", swarmAlgorithm)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopped := o.Mesh.Run(ctx)
	select {
	case reason := <-stopped:
		fmt.Printf("swarm: mesh run stopped (%s)\n", reason)
	case <-sigCh:
		cancel()
		reason := <-stopped
		fmt.Printf("swarm: stopped by signal (%s)\n", reason)
	}
	return nil
}

var swarmStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running `swarm start` process to stop",
	Args:  exactArgs(0, "swarm stop"),
	RunE:  runSwarmStop,
}

func runSwarmStop(cmd *cobra.Command, args []string) error {
	pid, err := readPIDFile("swarm")
	if err != nil {
		return opError(err)
	}
	if pid == 0 || !processAlive(pid) {
		return opError(fmt.Errorf("no running swarm process found"))
	}
	if _, err := processFindAndSignal(pid, syscall.SIGTERM); err != nil {
		return opError(fmt.Errorf("signal pid %d: %w", pid, err))
	}
	fmt.Printf("swarm: sent stop signal to pid %d\n", pid)
	return nil
}

var swarmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the mesh's current run status",
	Args:  exactArgs(0, "swarm status"),
	RunE:  runSwarmStatus,
}

func runSwarmStatus(cmd *cobra.Command, args []string) error {
	pid, _ := readPIDFile("swarm")
	running := pid != 0 && processAlive(pid)

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		return printJSON(map[string]any{
			"running": running,
			"pid":     pid,
			"mesh":    o.Mesh.Status(),
		})
	})
}

var swarmConfigParams string

var swarmConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Update swarm parameters (topology/max-connections via the underlying mesh)",
	Args:  exactArgs(0, "swarm configure --params JSON"),
	RunE:  runSwarmConfigure,
}

func runSwarmConfigure(cmd *cobra.Command, args []string) error {
	params, err := parseJSONObject(swarmConfigParams)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return usageErrorf("--params must be a non-empty JSON object")
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		topology := o.Mesh.Status().Topology
		if v, ok := params["topology"].(string); ok {
			kind := domain.TopologyKind(v)
			if !kind.IsValid() {
				return usageErrorf("params.topology %q is not a recognized topology", v)
			}
			topology = kind
		}
		maxConn := 0
		if v, ok := params["max_connections"].(float64); ok {
			maxConn = int(v)
		}
		o.Mesh.Configure(topology, maxConn)
		return printJSON(o.Mesh.Status())
	})
}
