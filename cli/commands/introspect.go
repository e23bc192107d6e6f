package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-schemadiff/cli/internal/config"
	"github.com/satishbabariya/prisma-schemadiff/cli/internal/ui"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// NewIntrospectCommand creates the introspect command
func NewIntrospectCommand(global *globalOptions) *cobra.Command {
	var url, out string

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Write a snapshot of a live database",
		Long: `Connect to a database, read its tables, enums and views, and write them
as a snapshot file. Without --out the snapshot is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" && global.cfg != nil {
				url = global.cfg.DatabaseURL
			}
			if url == "" {
				url = os.Getenv("DATABASE_URL")
			}

			schema, provider, err := introspectDatabase(cmd.Context(), global.resolveProvider(), url)
			if err != nil {
				return err
			}
			policy, err := providerPolicy(provider)
			if err != nil {
				return err
			}
			if _, err := introspect.NewSnapshotWithPolicy(schema, policy); err != nil {
				return fmt.Errorf("introspected schema is inconsistent: %w", err)
			}

			if out == "" {
				data, err := introspect.Encode(schema)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := introspect.WriteFile(config.AppFs, out, schema); err != nil {
				return err
			}
			ui.PrintSuccess(cmd.OutOrStdout(), "Wrote %s snapshot with %d table(s) and %d enum(s) to %s",
				provider, len(schema.Tables), len(schema.Enums), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Database connection URL (default DATABASE_URL)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot file to write")

	return cmd
}
