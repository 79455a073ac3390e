// Package main provides the entry point for the contact discovery pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "contact_pipeline",
	Short: "SMB contact discovery and validation pipeline",
	Long:  "contact_pipeline resolves company records to verified decision-maker contacts through a waterfall of external data sources, with confidence scoring and an auditable reasons trail for every verdict.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
