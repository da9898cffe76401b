package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/access-terminal/internal/service/setup"
)

var (
	// setupOptions collects the init flags.
	setupOptions setup.Options

	// initCmd writes starter files.
	initCmd = &cobra.Command{
		Use:   "init [listen-address]",
		Short: "Write a starter settings file and identity directory.",
		Long: `Writes default settings to the --config path, creates the frames folder and,
when missing, a sample identity directory next to it. An existing settings
file is kept unless --force is given.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := setupOptions
			opts.ConfigPath = configPath

			if len(args) > 0 {
				opts.ListenAddress = args[0]
			}

			return setup.Run(cmd.Context(), &opts)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().StringVar(&setupOptions.InferenceURL, "inference-url", "", "base URL of the inference sidecar")
	initCmd.Flags().BoolVar(&setupOptions.Force, "force", false, "overwrite an existing settings file")
}
