package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/orchestrator"
)

func init() {
	agentDeployCmd.Flags().StringVar(&agentDeployType, "type", "", "agent kind (e.g. code_worker)")
	agentDeployCmd.Flags().IntVar(&agentDeployReplicas, "replicas", 1, "number of agents to deploy")
	agentCmd.AddCommand(agentListCmd, agentDeployCmd, agentRemoveCmd, agentStatusCmd)
	rootCmd.AddCommand(agentCmd)
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "List, deploy, remove, and inspect agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered agent",
	Args:  exactArgs(0, "agent list"),
	RunE:  runAgentList,
}

func runAgentList(cmd *cobra.Command, args []string) error {
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		recs := o.Registry.All()
		if len(recs) == 0 {
			fmt.Println("No agents registered.")
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "ID\tKIND\tSTATUS\tCAPABILITIES\tLAST UPDATED")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				rec.Identity.ID, rec.Identity.Kind, rec.Status,
				len(rec.Capabilities), rec.LastUpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	})
}

var (
	agentDeployType     string
	agentDeployReplicas int
)

var agentDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Register one or more agents of a given kind",
	Args:  exactArgs(0, "agent deploy --type T [--replicas N]"),
	RunE:  runAgentDeploy,
}

func runAgentDeploy(cmd *cobra.Command, args []string) error {
	kind := domain.AgentKind(agentDeployType)
	if !kind.IsValid() {
		return usageErrorf("--type %q is not a recognized agent kind", agentDeployType)
	}
	if agentDeployReplicas < 1 {
		return usageErrorf("--replicas must be >= 1")
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		for i := 0; i < agentDeployReplicas; i++ {
			rec := domain.AgentRecord{
				Identity: domain.AgentIdentity{ID: uuid.NewString(), Kind: kind, Version: "cli"},
			}
			reg, err := o.Registry.Register(rec)
			if err != nil {
				return opError(fmt.Errorf("register agent %d/%d: %w", i+1, agentDeployReplicas, err))
			}
			fmt.Printf("deployed %s (%s)\n", reg.Identity.ID, reg.Identity.Kind)
		}
		return nil
	})
}

var agentRemoveCmd = &cobra.Command{
	Use:   "remove AGENT_ID",
	Short: "Unregister an agent",
	Args:  exactArgs(1, "agent remove <id>"),
	RunE:  runAgentRemove,
}

func runAgentRemove(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		if _, err := o.Registry.Get(id); err != nil {
			return opError(err)
		}
		o.Registry.Unregister(id)
		fmt.Printf("removed %s\n", id)
		return nil
	})
}

var agentStatusCmd = &cobra.Command{
	Use:   "status AGENT_ID",
	Short: "Show one agent's full record",
	Args:  exactArgs(1, "agent status <id>"),
	RunE:  runAgentStatus,
}

func runAgentStatus(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		rec, err := o.Registry.Get(id)
		if err != nil {
			return opError(err)
		}
		return printJSON(rec)
	})
}
