package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/orgkernel/cmd.Version=v1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "orgkernel",
	Short: "orgkernel: state-keeping and coordination kernel for hierarchical multi-agent orgs",
	Long:  "orgkernel persists the agent org chart, task trees, schedules, messages, and the audit log, and enforces the invariants (hiring budgets, delegation depth, optimistic concurrency, cycle freedom) that the rest of an agent platform builds on.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres DSN (default: $ORGKERNEL_POSTGRES_DSN); when unset, falls back to embedded SQLite")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "embedded SQLite database file (default: $ORGKERNEL_SQLITE_PATH or ./orgkernel.db)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "data-dir", "", "base directory for the agent filesystem mirror (default: $ORGKERNEL_DATA_DIR or ./data)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(migrateCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("orgkernel %s\n", Version)
		},
	}
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
