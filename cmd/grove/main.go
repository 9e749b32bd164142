// Command grove manages a closure-table tree from the command line.
package main

import (
	"os"

	"github.com/mesh-intelligence/grove/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
