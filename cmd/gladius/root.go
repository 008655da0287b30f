package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gladius",
	Short: "Audit real-estate deals with an AI assistant",
	Long: `Gladius sends a deal (location, price, strategy, income) to an AI
assistant and prints its investment opinion. After the first report you can
keep asking follow-up questions in the same conversation.

Quick Start:
  gladius audit --location "Chicó, Bogotá" --price 500000000 --area 60 --rent 3000000
  gladius audit --location "El Poblado" --price 380000000 --strategy short_term_rent --nightly-rate 250000`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
