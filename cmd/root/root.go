// Package root wires the agentrt command tree.
package root

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	debugMode  bool
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "agentrt",
		Short: "agentrt - agent tool-invocation runtime",
		Long:  "agentrt routes and executes the tool calls of an AI agent session",
		Example: `  agentrt tools
  agentrt run "list the files in the current directory"`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if flags.debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "agentrt.yaml", "Path to the configuration file")
	cmd.PersistentFlags().BoolVar(&flags.debugMode, "debug", os.Getenv("AGENTRT_DEBUG") != "", "Enable debug logging")

	cmd.AddCommand(
		newToolsCmd(&flags),
		newRunCmd(&flags),
		newVersionCmd(),
	)

	return cmd
}
