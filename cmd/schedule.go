package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect schedule readiness",
	}
	cmd.AddCommand(scheduleDueCmd())
	return cmd
}

func scheduleDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List every enabled schedule ready to fire right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := openKernel()
			if err != nil {
				return err
			}
			defer k.Close()

			due, err := k.checker.DueSchedules(context.Background(), time.Now().UTC())
			if err != nil {
				return err
			}
			return printJSON(due)
		},
	}
}
