package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/orgkernel/internal/dependency"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
	"github.com/nextlevelbuilder/orgkernel/internal/tasks"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, update, delegate, and inspect tasks",
	}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskProgressCmd())
	cmd.AddCommand(taskDelegateCmd())
	cmd.AddCommand(taskCompleteCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskDeadlockCheckCmd())
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var (
		agentID, title, priority, parentTaskID, delegatedTo, taskPath, blockedByCSV string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task owned by an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			in := tasks.CreateTaskInput{
				AgentID:  agentID,
				Title:    title,
				Priority: priority,
				TaskPath: taskPath,
			}
			if parentTaskID != "" {
				in.ParentTaskID = &parentTaskID
			}
			if delegatedTo != "" {
				in.DelegatedTo = &delegatedTo
			}
			if blockedByCSV != "" {
				in.BlockedBy = strings.Split(blockedByCSV, ",")
			}

			task, err := k.tasks.CreateTask(context.Background(), in)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "owning agent id (required)")
	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&priority, "priority", store.TaskPriorityMedium, "low|medium|high|urgent")
	cmd.Flags().StringVar(&parentTaskID, "parent", "", "parent task id for a subtask")
	cmd.Flags().StringVar(&delegatedTo, "delegated-to", "", "agent id this task starts delegated to")
	cmd.Flags().StringVar(&taskPath, "path", "", "workspace-relative artifact path")
	cmd.Flags().StringVar(&blockedByCSV, "blocked-by", "", "comma-separated task ids that must complete first")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	var expectedVersion int
	cmd := &cobra.Command{
		Use:   "set-status <task-id> <status>",
		Short: "Transition a task's status under optimistic concurrency control",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			task, err := k.tasks.UpdateStatus(context.Background(), args[0], args[1], expectedVersion)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "the version read before this update (required)")
	_ = cmd.MarkFlagRequired("expected-version")
	return cmd
}

func taskProgressCmd() *cobra.Command {
	var percent, expectedVersion int
	cmd := &cobra.Command{
		Use:   "set-progress <task-id>",
		Short: "Update a task's percent-complete (its parent is not updated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			task, err := k.tasks.UpdateProgress(context.Background(), args[0], percent, expectedVersion)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}
	cmd.Flags().IntVar(&percent, "percent", 0, "0-100")
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "the version read before this update (required)")
	_ = cmd.MarkFlagRequired("expected-version")
	return cmd
}

func taskDelegateCmd() *cobra.Command {
	var expectedVersion int
	var hasVersion bool
	cmd := &cobra.Command{
		Use:   "delegate <task-id> <to-agent-id>",
		Short: "Delegate a task to a subordinate of its owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			var versionPtr *int
			if hasVersion {
				versionPtr = &expectedVersion
			}

			task, err := k.tasks.DelegateTask(context.Background(), args[0], args[1], versionPtr)
			if err != nil {
				return err
			}
			return printJSON(task)
		},
	}
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "optional version check")
	cmd.Flags().BoolVar(&hasVersion, "check-version", false, "enforce --expected-version")
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	var expectedVersion int
	var forceNotify bool
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed and notify its owner's manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			ctx := context.Background()
			task, err := k.tasks.CompleteTask(ctx, args[0], expectedVersion)
			if err != nil {
				return err
			}
			if _, err := k.orch.NotifyTaskCompletion(ctx, task, forceNotify); err != nil {
				return err
			}
			return printJSON(task)
		},
	}
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "the version read before this update (required)")
	cmd.Flags().BoolVar(&forceNotify, "force-notify", false, "notify the manager even if they opted out of completion notices")
	_ = cmd.MarkFlagRequired("expected-version")
	return cmd
}

func taskListCmd() *cobra.Command {
	var blocked bool
	cmd := &cobra.Command{
		Use:   "list <agent-id>",
		Short: "List an agent's active (or, with --blocked, blocked) tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			var list []store.TaskData
			if blocked {
				list, err = k.tasks.GetBlockedTasks(context.Background(), args[0])
			} else {
				list, err = k.tasks.GetActiveTasks(context.Background(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
	cmd.Flags().BoolVar(&blocked, "blocked", false, "list blocked tasks instead of active ones")
	return cmd
}

// taskDeadlockCheckCmd wires internal/dependency's standalone deadlock
// probe into the CLI surface so a blocked_by cycle can be diagnosed without
// modifying the store (it only reads tasks through GetTask).
func taskDeadlockCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-deadlock <task-id>",
		Short: "Report the blocked_by cycle containing task-id, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			ctx := context.Background()
			lookup := func(ctx context.Context, id string) ([]string, bool, error) {
				task, err := k.stores.Tasks.GetTask(ctx, id)
				if err != nil {
					if store.IsKind(err, store.KindNotFound) {
						return nil, false, nil
					}
					return nil, false, err
				}
				return task.BlockedBy, true, nil
			}

			cycle, err := dependency.DetectTaskDeadlock(ctx, args[0], lookup)
			if err != nil {
				return err
			}
			if len(cycle) == 0 {
				cmd.Println("no cycle")
				return nil
			}
			return printJSON(cycle)
		},
	}
}
