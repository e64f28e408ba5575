package root

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/tools"
)

func newToolsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the configured session would advertise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context(), config.FileReader{Path: flags.configPath})
			if err != nil {
				return err
			}

			mcpTools, stop, err := startToolsets(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stop()

			router := tools.NewRouter(&cfg.Tools, mcpTools, nil)
			out, err := yaml.Marshal(router.Specs())
			if err != nil {
				return fmt.Errorf("rendering tool specs: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
