// Command dbo inspects and edits catalog entities through the
// identity-mapped store.
package main

import (
	"os"

	"github.com/mesh-intelligence/dbo/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
