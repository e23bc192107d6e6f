package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-schemadiff/cli/internal/config"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// NewFingerprintCommand creates the fingerprint command
func NewFingerprintCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint FILE...",
		Short: "Print the structural fingerprint of snapshot files",
		Long: `Validate each snapshot file and print its fingerprint. Structurally equal
snapshots print the same fingerprint. With a provider, references are
resolved under its case policy.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := providerPolicy(global.resolveProvider())
			if err != nil {
				return err
			}
			for _, path := range args {
				schema, err := introspect.ReadFile(config.AppFs, path)
				if err != nil {
					return err
				}
				snapshot, err := introspect.NewSnapshotWithPolicy(schema, policy)
				if err != nil {
					return fmt.Errorf("invalid snapshot %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", snapshot.Fingerprint(), path)
			}
			return nil
		},
	}
}
