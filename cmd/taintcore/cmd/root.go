// Package cmd wires the taintcore CLI's cobra command tree, the same
// root-plus-subcommands shape the teacher's own cmd/sourcetype/main.go
// and the pack's shivasurya-code-pathfinder cmd package use.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var warn = color.New(color.FgYellow).SprintFunc()

var rootCmd = &cobra.Command{
	Use:           "taintcore",
	Short:         "taintcore drives the analyze_function / parse_models / model_merge core",
	Long:          `taintcore is a thin CLI over pkg/taintcore's exposed operations, for inspecting model sources and analysis results without writing Go.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, warn("warning: .env present but unreadable: "+err.Error()))
		}
	},
}

// Execute runs the command tree, returning the first error any
// subcommand's RunE reports.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(parseModelsCmd)
	rootCmd.AddCommand(mergeCmd)
}
