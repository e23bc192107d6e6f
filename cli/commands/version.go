package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-schemadiff/cli/internal/version"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for the schemadiff CLI",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print build details")
	return cmd
}
