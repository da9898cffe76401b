package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/access-terminal/internal/repository/journal"
	"github.com/oshokin/access-terminal/internal/service/report"
)

var (
	// reportOptions collects the listing filters of logs and audit.
	reportOptions report.Options

	// logsCmd lists access decisions.
	logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "List access decisions, newest first.",
		Long: `Lists the access log kept by the terminal, newest first.
Entries can be filtered by department, section and decision.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := reportOptions
			opts.ConfigPath = configPath
			opts.Kind = report.KindAccess
			opts.Output = cmd.OutOrStdout()

			return report.Run(cmd.Context(), &opts)
		},
	}

	// auditCmd lists security alerts.
	auditCmd = &cobra.Command{
		Use:          "audit",
		Short:        "List security alerts, newest first.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := reportOptions
			opts.ConfigPath = configPath
			opts.Kind = report.KindAudit
			opts.Output = cmd.OutOrStdout()

			return report.Run(cmd.Context(), &opts)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{logsCmd, auditCmd} {
		c.Flags().StringVar(&reportOptions.Database, "database", "", "journal file, overrides settings")
		c.Flags().IntVarP(&reportOptions.Limit, "limit", "n", journal.DefaultLimit, "maximum number of entries")
		c.Flags().BoolVar(&reportOptions.JSON, "json", false, "print one JSON object per line")
	}

	logsCmd.Flags().StringVar(&reportOptions.Department, "department", "", "keep one department")
	logsCmd.Flags().StringVar(&reportOptions.Section, "section", "", "keep one section")
	logsCmd.Flags().StringVar(&reportOptions.Status, "status", "", "keep one decision: Granted or Denied")
	auditCmd.Flags().StringVar(&reportOptions.Action, "action", "", "keep one action, e.g. \"Security Alert\"")
}
