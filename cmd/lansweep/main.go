// Command lansweep is the entry point for the lansweep network scanner.
package main

import (
	"github.com/ostrand/lansweep/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
