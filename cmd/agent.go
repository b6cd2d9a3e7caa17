package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/orgkernel/internal/agentconfig"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Hire, pause, resume, and inspect agents",
	}
	cmd.AddCommand(agentHireCmd())
	cmd.AddCommand(agentPauseCmd())
	cmd.AddCommand(agentResumeCmd())
	cmd.AddCommand(agentShowCmd())
	cmd.AddCommand(agentOrgChartCmd())
	return cmd
}

func agentHireCmd() *cobra.Command {
	var (
		id, role, displayName, mainGoal, managerID string
		canHire                                    bool
		maxSubordinates, hiringBudget               int
	)
	cmd := &cobra.Command{
		Use:   "hire",
		Short: "Hire a new agent, optionally under a manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			cfg := agentconfig.Default()
			cfg.ID = id
			cfg.Role = role
			cfg.DisplayName = displayName
			cfg.MainGoal = mainGoal
			cfg.Permissions.CanHire = canHire
			cfg.Permissions.MaxSubordinates = maxSubordinates
			cfg.Permissions.HiringBudget = hiringBudget

			var mgr *string
			if managerID != "" {
				mgr = &managerID
			}

			agent, err := k.orch.HireAgent(context.Background(), mgr, cfg)
			if err != nil {
				return err
			}
			return printJSON(agent)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "new agent id (required)")
	cmd.Flags().StringVar(&role, "role", "", "agent role")
	cmd.Flags().StringVar(&displayName, "display-name", "", "human-readable name")
	cmd.Flags().StringVar(&mainGoal, "main-goal", "", "the agent's top-level objective")
	cmd.Flags().StringVar(&managerID, "manager", "", "manager agent id (hires as a top-level agent if omitted)")
	cmd.Flags().BoolVar(&canHire, "can-hire", false, "grant this agent the ability to hire subordinates")
	cmd.Flags().IntVar(&maxSubordinates, "max-subordinates", 0, "subordinate cap if can-hire is set")
	cmd.Flags().IntVar(&hiringBudget, "hiring-budget", 0, "remaining hires allowed if can-hire is set")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func agentPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <agent-id>",
		Short: "Pause an agent and block its active tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			result, err := k.orch.PauseAgent(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func agentResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <agent-id>",
		Short: "Resume a paused agent and unblock tasks it auto-blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			result, err := k.orch.ResumeAgent(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func agentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Print an agent's registry row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			agent, err := k.registry.GetAgent(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(agent)
		},
	}
}

func agentOrgChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "org-chart",
		Short: "List every agent in the org",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			chart, err := k.registry.GetOrgChart(context.Background())
			if err != nil {
				return err
			}
			return printJSON(chart)
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
