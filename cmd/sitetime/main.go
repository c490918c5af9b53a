// Command sitetime tracks how long the browser keeps each web address active.
package main

import (
	"os"

	"github.com/runnerr0/sitetime/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// go-flags has already printed the error.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
