// Package enrich provides the "tabkit enrich" command.
package enrich

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/ai"
	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/enrich"
	"github.com/klytics/tabkit/internal/export"
	"github.com/klytics/tabkit/internal/output"
)

// NewCommand returns the enrich command.
func NewCommand() *cobra.Command {
	var (
		outPath      string
		dryRun       bool
		check        bool
		cacheBackend string
	)

	cmd := &cobra.Command{
		Use:   "enrich <job.yaml>",
		Short: "Add AI-generated columns to a CSV or text file",
		Long: `Runs an enrichment job: every input row passes through the job's steps,
each of which asks the configured model a question about one column and stores
the answer in new output columns. Answers are cached per step, so reruns only
pay for rows not seen before.

Job file:
  input: articulos.csv
  delimiter: ";"
  output: articulos_atc.xlsx
  delay: 1s
  steps:
    - id: principle
      from: Articulo_Nombre
      cache: principles.json
      prompt: "Active ingredient of {{.Value}}? Answer with the name only."
    - id: atc
      from: principle
      when: principle != "Error"
      cache: atc.db
      split: " | "
      columns: [ATC_Code, ATC_Group]
      prompt: "ATC code and group of {{.Value}}, formatted as CODE | GROUP."

Examples:
  tabkit enrich job.yaml
  tabkit enrich job.yaml --provider ollama --model llama3
  tabkit enrich job.yaml --dry-run --output preview.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")

			job, err := enrich.LoadJob(args[0])
			if err != nil {
				return err
			}
			if outPath != "" {
				job.Output = outPath
			}

			if check {
				return printJob(job, jsonFlag)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if job.Delay == 0 {
				job.Delay = cfg.Enrich.Delay
			}

			var completer ai.Completer
			if !dryRun {
				completer, err = newCompleter(cmd, cfg)
				if err != nil {
					return err
				}
			}

			if cacheBackend == "" {
				cacheBackend = cfg.Cache.Backend
			}
			runner := enrich.NewRunner(completer, enrich.Options{
				CacheBackend: cacheBackend,
				DryRun:       dryRun,
				Verbose:      verbose,
				Export: export.Options{
					MaxColumnWidth: cfg.Export.MaxColumnWidth,
					Locale:         cfg.Export.Locale,
					StrictMarkup:   cfg.Export.StrictMarkup,
				},
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runner.Run(ctx, job)
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("interrupted — answers received so far are kept in the step caches")
				}
				return err
			}

			if jsonFlag {
				return output.JSON(os.Stdout, summary)
			}
			printSummary(summary, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Override the job's output file (.csv or .xlsx)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Answer from the caches only; never call the model")
	cmd.Flags().BoolVar(&check, "check", false, "Validate the job file and print its steps")
	cmd.Flags().StringVar(&cacheBackend, "cache-backend", "", "Cache store: json | sqlite (default: by file extension)")

	return cmd
}

func newCompleter(cmd *cobra.Command, cfg *config.Config) (ai.Completer, error) {
	providerName, _ := cmd.Flags().GetString("provider")
	modelName, _ := cmd.Flags().GetString("model")
	if providerName == "" {
		providerName = cfg.Provider
	}
	if modelName == "" {
		modelName = cfg.Model
	}

	aiCfg := ai.Config{APIKey: cfg.APIKey(providerName)}
	if strings.EqualFold(providerName, "ollama") {
		aiCfg.BaseURL = cfg.Ollama.Host
	}
	return ai.NewCompleter(providerName, modelName, aiCfg)
}

func printJob(job *enrich.Job, jsonFlag bool) error {
	if jsonFlag {
		return output.JSON(os.Stdout, job)
	}

	bold := color.New(color.Bold)
	bold.Printf("Job %s\n", job.Name)
	fmt.Printf("  Input:  %s\n", job.Input)
	fmt.Printf("  Output: %s\n", job.Output)
	if job.Delay > 0 {
		fmt.Printf("  Delay:  %s\n", job.Delay)
	}
	for i, s := range job.Steps {
		fmt.Printf("  %d. %s ← %s → %s\n", i+1, s.ID, s.From, strings.Join(s.OutputColumns(), ", "))
		if s.When != "" {
			fmt.Printf("     when: %s\n", s.When)
		}
		if s.Cache != "" {
			fmt.Printf("     cache: %s\n", s.Cache)
		}
	}
	color.New(color.FgGreen).Println("Job is valid")
	return nil
}

func printSummary(s *enrich.Summary, dryRun bool) {
	color.New(color.FgGreen).Printf("Wrote %s", s.Output)
	fmt.Printf(" (%s rows in %s)\n", humanize.Comma(int64(s.Rows)), s.Duration)
	fmt.Printf("  API calls:  %s\n", humanize.Comma(int64(s.APICalls)))
	fmt.Printf("  Cache hits: %s\n", humanize.Comma(int64(s.CacheHits)))
	if s.Skipped > 0 {
		fmt.Printf("  Skipped:    %s\n", humanize.Comma(int64(s.Skipped)))
	}
	if dryRun && s.Missing > 0 {
		color.New(color.FgYellow).Printf("  Not cached: %s\n", humanize.Comma(int64(s.Missing)))
	}
	if s.Errors > 0 {
		color.New(color.FgRed).Printf("  Errors:     %s (written as %q)\n", humanize.Comma(int64(s.Errors)), enrich.ErrorAnswer)
	}
}
