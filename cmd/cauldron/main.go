// Package main provides the cauldron CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/cauldron/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
