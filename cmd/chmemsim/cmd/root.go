// Package cmd defines chmemsim's cobra command tree.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chmemsim",
	Short: "chmemsim simulates a chip multiprocessor memory hierarchy",
	Long: `chmemsim replays a trace of memory references through a simulated
set-associative cache hierarchy and banked DRAM, reporting per-level hit
rates, DRAM access latencies, and per-reference-type average delay.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
