// Package commands implements the schemadiff CLI commands.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-schemadiff/cli/internal/config"
	"github.com/satishbabariya/prisma-schemadiff/cli/internal/version"
	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	configPath string
	provider   string
	debug      bool

	cfg *config.Config
}

// resolveProvider prefers the --provider flag, then the config file
func (o *globalOptions) resolveProvider() string {
	if o.provider != "" {
		return o.provider
	}
	if o.cfg != nil {
		return o.cfg.Provider
	}
	return ""
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "schemadiff",
		Short: "Plan migrations between database schema snapshots",
		Long: `schemadiff compares two database schema snapshots and prints the ordered
steps that turn the first into the second. Snapshots are YAML files written
by "schemadiff introspect" or any tool that produces the same layout.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(config.AppFs, opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			debug.Init(opts.debug || cfg.Debug)
			if cfg.File != "" {
				debug.Debug("Loaded config", "file", cfg.File)
			}
			return nil
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default .schemadiff.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.provider, "provider", "p", "", "Database provider: postgresql, cockroachdb, mysql or sqlite")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewIntrospectCommand(opts))
	cmd.AddCommand(NewFingerprintCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute is the main entry point for the CLI
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
