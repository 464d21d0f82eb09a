// Package batch provides the "tabkit batch" command for exporting many data
// files at once.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/export"
	"github.com/klytics/tabkit/internal/output"
	"github.com/klytics/tabkit/internal/watch"
)

type resultItem struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	var (
		outDir      string
		delimiter   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch <glob-pattern>",
		Short: "Export every matching data file to .xlsx",
		Long: `Exports all .json, .yaml and .csv files matching a glob pattern, each to a
workbook with the same base name. On error, the batch logs the failure and
continues to the next file.

Examples:
  tabkit batch 'reports/*.json' --out-dir xlsx
  tabkit batch 'data/*.csv' --delimiter ";" --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			files, err := filepath.Glob(args[0])
			if err != nil {
				return fmt.Errorf("invalid glob pattern %q: %w", args[0], err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no files matched pattern %q", args[0])
			}

			delim := ','
			if delimiter != "" {
				r := []rune(delimiter)
				if delimiter == `\t` {
					r = []rune{'\t'}
				}
				if len(r) != 1 {
					return fmt.Errorf("invalid --delimiter %q — expected a single character", delimiter)
				}
				delim = r[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			handler := watch.ExportHandler(outDir, export.Options{
				MaxColumnWidth: cfg.Export.MaxColumnWidth,
				Locale:         cfg.Export.Locale,
				StrictMarkup:   cfg.Export.StrictMarkup,
			}, delim)

			var mu sync.Mutex
			report := func(idx int, r resultItem) {
				mu.Lock()
				defer mu.Unlock()
				if jsonFlag {
					return
				}
				prefix := fmt.Sprintf("[%d/%d] %s", idx+1, len(files), filepath.Base(r.File))
				if r.Status == "ok" {
					fmt.Printf("%s → %s\n", prefix, r.Output)
				} else {
					color.New(color.FgRed).Printf("%s: %s\n", prefix, r.Error)
				}
			}

			results := run(cmd.Context(), files, concurrency, handler, report)

			failed := 0
			for _, r := range results {
				if r.Status != "ok" {
					failed++
				}
			}

			if jsonFlag {
				return output.JSON(os.Stdout, results)
			}

			fmt.Printf("\nProcessed %d files. %d succeeded, %d failed.\n", len(files), len(files)-failed, failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory (default: next to each input)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of parallel workers")

	return cmd
}

// run applies h to every file with at most concurrency workers. Results keep
// the input order.
func run(ctx context.Context, files []string, concurrency int, h watch.Handler, report func(int, resultItem)) []resultItem {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]resultItem, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		go func(idx int, f string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			r := resultItem{File: f, Status: "ok"}
			out, err := h(ctx, f)
			if err != nil {
				r.Status = "error"
				r.Error = err.Error()
			} else {
				r.Output = out
			}
			results[idx] = r
			if report != nil {
				report(idx, r)
			}
		}(i, file)
	}
	wg.Wait()
	return results
}
