package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/domain/access"
)

// graphCmd prints the terminal state machine in Graphviz DOT format.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the terminal state machine as a Graphviz graph.",
	Long: `Prints the terminal state machine in DOT format, labelled with the suppression
windows from the settings file, or the defaults when the file is missing.

  access-terminal graph | dot -Tsvg > states.svg`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(configPath)
		if err != nil {
			settings = config.Default()
		}

		dot, err := access.Graph(access.Windows{
			Granted:   settings.GrantedWindow,
			Denied:    settings.DeniedWindow,
			Emergency: settings.EmergencyWindow,
		})
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), dot)

		return err
	},
}
