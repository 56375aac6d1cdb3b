// Package cli implements the dbo command-line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	driver    string
	dsn       string
	verbose   bool
}

// NewRootCmd creates the top-level "dbo" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "dbo",
		Short: "Inspect and edit identity-mapped entities",
		Long: "dbo loads, creates, updates and deletes the catalog entities through the\n" +
			"identity-mapped store, against a MySQL or SQLite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory of the default SQLite database")
	root.PersistentFlags().StringVar(&flags.driver, "driver", "", "database driver: mysql or sqlite")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "data source name")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log statements to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newEntitiesCmd())
	root.AddCommand(newMetaCmd(flags))
	root.AddCommand(newGetCmd(flags))
	root.AddCommand(newSetCmd(flags))
	root.AddCommand(newDeleteCmd(flags))

	return root
}

// Execute runs the root command with the process arguments and returns the
// exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "dbo:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// usageError marks an error caused by the command line rather than the
// database.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// exitCode maps caller mistakes to exitUserError and everything else to
// exitSysError.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, types.ErrInvalidState),
		errors.Is(err, types.ErrDriverUnknown),
		errors.Is(err, types.ErrDriverEmpty),
		errors.Is(err, types.ErrDSNEmpty):
		return exitUserError
	default:
		return exitSysError
	}
}
