package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/service/terminal"
	"github.com/oshokin/access-terminal/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// framesDir overrides the replay folder.
	framesDir string
	// allowMultiple skips the single-instance check.
	allowMultiple bool

	// rootCmd represents the base command running the terminal daemon.
	rootCmd = &cobra.Command{
		Use:   "access-terminal [listen-address]",
		Short: "Run the access control terminal.",
		Long: `Runs the access control terminal: every tick a camera frame is scanned for a
QR badge, a weapon and a known face, and the door decision is shown, logged
and streamed to monitors over gRPC.

Frames are replayed from a folder of images. Weapon and face recognition use
the inference sidecar configured with inference_url; without it the terminal
recognizes QR badges only.
Listen address can be provided as argument to override config.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return terminal.Run(ctx, &terminal.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				FramesDir:     framesDir,
				AllowMultiple: allowMultiple,
			})
		},
	}
)

// Execute runs the access-terminal CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&framesDir, "frames", "f", "", "folder of images replayed as the camera feed")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single-instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(logsCmd, auditCmd, graphCmd, initCmd)
}
