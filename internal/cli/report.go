package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/stagehand-labs/stagehand/internal/failure"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// Report prints a command error and any cleanup warnings it carries.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	errColor.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
	printWarnings(w, failure.Warnings(err))
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		warnColor.Fprint(w, "warning: ")
		fmt.Fprintln(w, msg)
	}
}
