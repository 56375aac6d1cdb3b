package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbo/pkg/dbo"
)

const modulePath = "github.com/mesh-intelligence/dbo"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dbo version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "dbo %s\nmodule: %s\n", dbo.Version, modulePath)
			return nil
		},
	}
}
