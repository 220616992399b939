// Command ruledeploy installs a curated rule tree into a project.
package main

import (
	"os"

	"github.com/roach88/ruledeploy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
