package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/orchestrator"
)

func init() {
	meshCreateCmd.Flags().IntVar(&meshCreateNodes, "nodes", 0, "number of synthetic nodes to join the mesh")
	meshCreateCmd.Flags().StringVar(&meshCreateTopology, "topology", "mesh", "topology kind: mesh, ring, star, hierarchical")
	meshConfigureCmd.Flags().StringVar(&meshConfigTopology, "topology", "", "topology kind: mesh, ring, star, hierarchical")
	meshConfigureCmd.Flags().IntVar(&meshConfigMaxConn, "max-connections", 0, "max outbound connections per node (0 keeps current)")
	meshCmd.AddCommand(meshCreateCmd, meshStatusCmd, meshConfigureCmd)
	rootCmd.AddCommand(meshCmd)
}

var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Create, inspect, and reconfigure the neural mesh topology",
}

var (
	meshCreateNodes    int
	meshCreateTopology string
)

var meshCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Configure the mesh topology and join synthetic nodes",
	Args:  exactArgs(0, "mesh create --nodes N --topology T"),
	RunE:  runMeshCreate,
}

func runMeshCreate(cmd *cobra.Command, args []string) error {
	kind := domain.TopologyKind(meshCreateTopology)
	if !kind.IsValid() {
		return usageErrorf("--topology %q is not a recognized topology", meshCreateTopology)
	}
	if meshCreateNodes < 0 {
		return usageErrorf("--nodes must be >= 0")
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		o.Mesh.Configure(kind, 0)
		for i := 0; i < meshCreateNodes; i++ {
			o.Mesh.Join(uuid.NewString())
		}
		fmt.Printf("mesh configured: topology=%s nodes=%d\n", kind, meshCreateNodes)
		return printJSON(o.Mesh.Status())
	})
}

var meshStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current mesh topology summary",
	Args:  exactArgs(0, "mesh status"),
	RunE:  runMeshStatus,
}

func runMeshStatus(cmd *cobra.Command, args []string) error {
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		return printJSON(o.Mesh.GetTopology())
	})
}

var (
	meshConfigTopology string
	meshConfigMaxConn  int
)

var meshConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Change topology kind and/or max connections, triggering a rebuild",
	Args:  exactArgs(0, "mesh configure --topology T --max-connections N"),
	RunE:  runMeshConfigure,
}

func runMeshConfigure(cmd *cobra.Command, args []string) error {
	if meshConfigTopology == "" && meshConfigMaxConn == 0 {
		return usageErrorf("at least one of --topology or --max-connections is required")
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		current := o.Mesh.Status()
		kind := current.Topology
		if meshConfigTopology != "" {
			kind = domain.TopologyKind(meshConfigTopology)
			if !kind.IsValid() {
				return usageErrorf("--topology %q is not a recognized topology", meshConfigTopology)
			}
		}
		maxConn := meshConfigMaxConn
		o.Mesh.Configure(kind, maxConn)
		return printJSON(o.Mesh.Status())
	})
}
