package main

import "github.com/spf13/cobra"

// rootCmd is the root of the command-line application.
var rootCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "fetcher downloads model files from a model registry",
}

func init() {
	rootCmd.AddCommand(pullCmd())
	rootCmd.SilenceUsage = true
}
