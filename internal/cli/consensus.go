package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/orchestrator"
)

func init() {
	consensusProposeCmd.Flags().StringVar(&consensusProposedBy, "by", "cli", "proposer identity recorded on the proposal")
	consensusVoteCmd.Flags().StringVar(&consensusVoteAs, "as", "cli", "voter identity recorded on the vote")
	consensusVoteCmd.Flags().StringVar(&consensusVoteSignature, "signature", "", "opaque signature tag recorded on the vote")
	consensusCmd.AddCommand(consensusProposeCmd, consensusVoteCmd, consensusListCmd)
	rootCmd.AddCommand(consensusCmd)
}

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Propose, vote on, and list consensus rounds",
}

var consensusProposedBy string

var consensusProposeCmd = &cobra.Command{
	Use:   "propose KIND [DATA_JSON]",
	Short: "Open a new proposal",
	Args:  rangeArgs(1, 2, "consensus propose <type> [data-json]"),
	RunE:  runConsensusPropose,
}

func runConsensusPropose(cmd *cobra.Command, args []string) error {
	kind := args[0]
	var dataArg string
	if len(args) == 2 {
		dataArg = args[1]
	}
	data, err := parseJSONObject(dataArg)
	if err != nil {
		return err
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		p := o.Consensus.Propose(kind, consensusProposedBy, data)
		return printJSON(p)
	})
}

var consensusVoteAs string
var consensusVoteSignature string

var consensusVoteCmd = &cobra.Command{
	Use:   "vote PROPOSAL_ID yes|no",
	Short: "Cast a vote on an open proposal",
	Args:  exactArgs(2, "consensus vote <proposalId> yes|no"),
	RunE:  runConsensusVote,
}

func runConsensusVote(cmd *cobra.Command, args []string) error {
	proposalID := args[0]
	var choice domain.VoteChoice
	switch args[1] {
	case "yes":
		choice = domain.VoteYes
	case "no":
		choice = domain.VoteNo
	default:
		return usageErrorf(`vote choice must be "yes" or "no", got %q`, args[1])
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		if err := o.Consensus.Vote(proposalID, consensusVoteAs, choice, consensusVoteSignature); err != nil {
			return opError(err)
		}
		p, err := o.Consensus.Get(proposalID)
		if err != nil {
			return opError(err)
		}
		return printJSON(p)
	})
}

var consensusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open proposals and overall tallies",
	Args:  exactArgs(0, "consensus list"),
	RunE:  runConsensusList,
}

func runConsensusList(cmd *cobra.Command, args []string) error {
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		active := o.Consensus.GetActive()
		if len(active) == 0 {
			fmt.Println("No open proposals.")
		} else {
			w := newTabWriter()
			fmt.Fprintln(w, "ID\tKIND\tPROPOSED BY\tVOTES\tREQUIRED\tSTATUS")
			for _, p := range active {
				yes, no := p.Tally()
				fmt.Fprintf(w, "%s\t%s\t%s\t%d yes/%d no\t%d\t%s\n",
					p.ID, p.Kind, p.ProposedBy, yes, no, p.RequiredVotes, p.Status)
			}
			w.Flush()
		}
		return printJSON(o.Consensus.Status())
	})
}
