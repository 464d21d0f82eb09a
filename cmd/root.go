// Package cmd contains all CLI commands for the tabkit binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/cmd/batch"
	cmdcache "github.com/klytics/tabkit/cmd/cache"
	"github.com/klytics/tabkit/cmd/completion"
	cmdconfig "github.com/klytics/tabkit/cmd/config"
	"github.com/klytics/tabkit/cmd/doctor"
	cmdenrich "github.com/klytics/tabkit/cmd/enrich"
	cmdexport "github.com/klytics/tabkit/cmd/export"
	"github.com/klytics/tabkit/cmd/read"
	"github.com/klytics/tabkit/cmd/version"
	cmdwatch "github.com/klytics/tabkit/cmd/watch"
)

var (
	jsonOutput bool
	verbose    bool
	modelName  string
	provider   string
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tabkit",
		Short: "Turn tabular data into formatted Excel workbooks",
		Long: `tabkit — tabular data in, finished spreadsheets out.

Exports JSON, YAML and CSV records to .xlsx with typed numbers, number
formats, inline bold/color markup, wrapped text and fitted column widths.
Reads workbooks back as records and enriches CSV files with model answers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				color.NoColor = true
			}
			if jsonOutput {
				os.Setenv("TABKIT_JSON", "true")
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", os.Getenv("TABKIT_MODEL"), "Model name override for enrich")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", os.Getenv("TABKIT_PROVIDER"), "Completion provider: openai | anthropic | ollama")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	// Register subcommands
	rootCmd.AddCommand(cmdexport.NewCommand())
	rootCmd.AddCommand(read.NewCommand())
	rootCmd.AddCommand(cmdenrich.NewCommand())
	rootCmd.AddCommand(cmdcache.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
