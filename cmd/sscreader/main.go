// sscreader runs writers and readers of a staged stream in one process and verifies
// what every reader receives.
package main

import (
	"os"

	"github.com/spacemeshos/go-ssc/cmd"
)

var (
	version string
	commit  string
	branch  string
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := GetCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
