// Command taintcore is a demonstration CLI over pkg/taintcore: it parses
// a model-source document, prints the resulting per-callable summaries,
// and merges model declarations for the same callable coming from two
// different sources.
package main

import (
	"fmt"
	"os"

	"github.com/coldtrace/taintcore/cmd/taintcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
