// Command repokit manages parent, child_a and child_b models in a memory,
// SQLite or PostgreSQL repository.
package main

import (
	"os"

	"github.com/mesh-intelligence/repokit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
