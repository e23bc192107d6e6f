package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-schemadiff/cli/internal/config"
	"github.com/satishbabariya/prisma-schemadiff/cli/internal/ui"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
)

// NewInitCommand creates the init command
func NewInitCommand(global *globalOptions) *cobra.Command {
	var path string
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long: `Write a .schemadiff.yaml with the given defaults so later diff runs need
fewer flags. Without --path the file goes to ~/.config/schemadiff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Provider = global.resolveProvider()
			if cfg.Provider != "" {
				// Reject typos early
				if _, err := flavour.ForProvider(cfg.Provider); err != nil {
					return err
				}
			}
			if _, err := ui.ParseFormat(cfg.Format); err != nil {
				return err
			}

			written, err := config.SaveConfig(config.AppFs, cfg, path)
			if err != nil {
				return err
			}
			ui.PrintSuccess(cmd.OutOrStdout(), "Wrote %s", written)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Where to write the config file")
	cmd.Flags().StringVar(&cfg.From, "from", "", "Default previous snapshot file")
	cmd.Flags().StringVar(&cfg.To, "to", "", "Default next snapshot file")
	cmd.Flags().StringSliceVar(&cfg.Ignore, "ignore", nil, "Default ignore patterns")
	cmd.Flags().StringVar(&cfg.Format, "format", "text", "Default output format")
	cmd.Flags().BoolVar(&cfg.AllowAmbiguousNames, "allow-ambiguous", false, "Allow names that collide under the case policy")

	return cmd
}
