// Command bucketwalk enumerates every object key in a bucket.
package main

import (
	"os"

	"github.com/3leaps/bucketwalk/internal/cmd"
)

// Set by -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.Execute())
}
