package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reviewer",
	Short: "reviewer runs parallel AI code review agents against a target",
	Long: `reviewer fans a set of configured review agents out against a code
target — a local directory or a remote "owner/repo" handle — collects and
deduplicates their findings across repeated passes, and writes per-agent
reports plus an executive summary.`,
}

// Execute runs the reviewer CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // cobra command registration
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(resolveTokenCmd)
}
