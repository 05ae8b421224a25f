package main

import (
	"os"

	"github.com/stagehand-labs/stagehand/internal/cli"
	"github.com/stagehand-labs/stagehand/internal/failure"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	err := cli.Execute(version, commit, date)
	cli.Report(os.Stderr, err)
	os.Exit(failure.ExitCode(err))
}
