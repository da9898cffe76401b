package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/service/monitor"
	"github.com/oshokin/access-terminal/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// monitorOptions collects the flags.
	monitorOptions monitor.Options

	// rootCmd represents the base command following a terminal.
	rootCmd = &cobra.Command{
		Use:   "terminal-monitor [server-address]",
		Short: "Follow an access terminal's state.",
		Long: `Connects to an access terminal's status API and prints its current state,
then every state change and diagnostic as it happens. The stream is
re-established when the terminal restarts.
Server address can be provided as argument or loaded from configuration file.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			opts := monitorOptions
			opts.ConfigPath = configPath

			if len(args) > 0 {
				opts.ServerAddress = args[0]
			}

			return monitor.Run(ctx, &opts)
		},
	}
)

// Execute runs the terminal-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&monitorOptions.JSON, "json", false, "print events as JSON")
	rootCmd.Flags().BoolVar(&monitorOptions.Once, "once", false, "print the current state and exit")
	rootCmd.Flags().DurationVar(&monitorOptions.RetryInterval, "retry", monitor.DefaultRetryInterval,
		"pause before reconnecting")
}
