package main

import (
	"github.com/spf13/cobra"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Book production pipeline with LLM-generated manuscripts",
	Long: `Quill is a book production pipeline that turns a topic into a finished,
print-ready manuscript using LLM-generated research, structure and prose.

The pipeline includes:
  - Topic research and title candidates
  - Chapter structure with owner review
  - Chapter-by-chapter writing with retry and degradation
  - Marketing copy and PDF artifact rendering`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.quill/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "quill home directory (default: ~/.quill)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
