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
	taskSubmitCmd.Flags().IntVar(&taskSubmitPriority, "priority", int(domain.PriorityNormal), "0=critical 1=high 2=normal 3=low")
	taskSubmitCmd.Flags().StringVar(&taskSubmitData, "data", "", "JSON object task payload")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "filter by status (pending, running, completed, failed, ...)")
	taskRecentCmd.Flags().IntVar(&taskRecentN, "n", 20, "number of recent archived tasks to show")
	taskCmd.AddCommand(taskSubmitCmd, taskListCmd, taskRecentCmd)
	rootCmd.AddCommand(taskCmd)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Submit and inspect tasks",
}

var (
	taskSubmitPriority int
	taskSubmitData     string
)

var taskSubmitCmd = &cobra.Command{
	Use:   "submit TYPE [--priority P] [--data JSON]",
	Short: "Submit a new task to the scheduler",
	Args:  exactArgs(1, "task submit <type> [--priority P] [--data JSON]"),
	RunE:  runTaskSubmit,
}

func runTaskSubmit(cmd *cobra.Command, args []string) error {
	taskType := domain.TaskType(args[0])
	if taskSubmitPriority < int(domain.PriorityCritical) || taskSubmitPriority > int(domain.PriorityLow) {
		return usageErrorf("--priority must be in [0,3]")
	}
	payload, err := parseJSONObject(taskSubmitData)
	if err != nil {
		return err
	}

	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		t := domain.Task{
			ID:       uuid.NewString(),
			Type:     taskType,
			Priority: domain.TaskPriority(taskSubmitPriority),
			Payload:  payload,
		}
		submitted, err := o.Scheduler.Submit(t)
		if err != nil {
			return opError(err)
		}
		return printJSON(submitted)
	})
}

var taskListStatus string

var taskListCmd = &cobra.Command{
	Use:   "list [--status S]",
	Short: "List tasks, optionally filtered by status",
	Args:  exactArgs(0, "task list [--status S]"),
	RunE:  runTaskList,
}

func runTaskList(cmd *cobra.Command, args []string) error {
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		tasks := o.Scheduler.List(domain.TaskStatus(taskListStatus))
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "ID\tTYPE\tPRIORITY\tSTATUS\tASSIGNED TO\tUPDATED")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				t.ID, t.Type, t.Priority, t.Status, t.AssignedTo, t.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	})
}

var taskRecentN int

var taskRecentCmd = &cobra.Command{
	Use:   "recent [--n N]",
	Short: "Show the most recently archived (terminal) tasks",
	Args:  exactArgs(0, "task recent [--n N]"),
	RunE:  runTaskRecent,
}

func runTaskRecent(cmd *cobra.Command, args []string) error {
	if taskRecentN <= 0 {
		return usageErrorf("--n must be > 0")
	}
	return withOrchestrator(func(ctx context.Context, o *orchestrator.Orchestrator) error {
		tasks := o.Scheduler.Recent(taskRecentN)
		return printJSON(tasks)
	})
}
