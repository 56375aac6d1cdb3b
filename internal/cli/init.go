package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbo/internal/catalog"
	"github.com/mesh-intelligence/dbo/internal/sqldb"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the configuration and create the catalog tables",
		Long: "Write config.yaml if it is missing, then create the catalog tables in the\n" +
			"configured database. Running init again is harmless.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, configDir, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			if _, err := writeConfigIfMissing(configDir, cfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := catalog.Install(cmd.Context(), s.db, s.db.Driver()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", s.db.DSN())
			return nil
		},
	}
}

var _ catalog.Performer = (*sqldb.DB)(nil)
