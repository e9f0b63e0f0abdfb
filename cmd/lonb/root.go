package main

import (
	"github.com/spf13/cobra"

	"github.com/codevakure/lonb/internal/api"
	"github.com/codevakure/lonb/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lonb",
	Short: "Loan document onboarding with LLM-powered structured extraction",
	Long: `lonb onboards commercial loan documents and extracts structured booking
data from them using a Bedrock Knowledge Base and an Anthropic model.

The pipeline includes:
  - Document storage with booking-scoped retrieval metadata
  - Knowledge base ingestion and sync
  - Schema-driven extraction with JSON Schema validation
  - Optional per-field source citations`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.lonb/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
