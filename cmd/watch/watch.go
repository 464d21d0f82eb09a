// Package watch provides the "tabkit watch" command, which re-exports data
// files to .xlsx whenever they change.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/export"
	w "github.com/klytics/tabkit/internal/watch"
)

// NewCommand creates the "watch" command.
func NewCommand() *cobra.Command {
	var (
		outDir     string
		extensions []string
		pattern    string
		recursive  bool
		debounce   time.Duration
		delimiter  string
	)

	cmd := &cobra.Command{
		Use:   "watch <directory> [directory...]",
		Short: "Re-export data files to .xlsx whenever they change",
		Long: `Watches directories for new or modified .json, .yaml and .csv files and
exports each one to a formatted workbook with the same base name.

Examples:
  tabkit watch ./reports --out ./xlsx
  tabkit watch ./data -r --pattern "ventas_*" --delimiter ";"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			delim, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := export.Options{
				MaxColumnWidth: cfg.Export.MaxColumnWidth,
				Locale:         cfg.Export.Locale,
				StrictMarkup:   cfg.Export.StrictMarkup,
			}

			watcher, err := w.New(w.Config{
				Directories: args,
				Recursive:   recursive,
				Pattern:     pattern,
				Extensions:  extensions,
				Debounce:    debounce,
			}, w.ExportHandler(outDir, opts, delim))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			watcher.OnEvent = func(ev w.Event) {
				if jsonOut {
					enc.Encode(ev)
					return
				}
				ts := ev.Time.Format("15:04:05")
				if ev.Status == "error" {
					color.New(color.FgRed).Printf("[%s] %s: %s\n", ts, ev.Path, ev.Error)
					return
				}
				color.New(color.FgGreen).Printf("[%s] %s → %s\n", ts, ev.Path, ev.Output)
			}

			exts := extensions
			if len(exts) == 0 {
				exts = w.DataExtensions
			}
			if !jsonOut {
				fmt.Printf("Watching %d directory(ies) for %s files\n", len(args), strings.Join(exts, ", "))
				fmt.Println("Press Ctrl+C to stop")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := watcher.Start(ctx); err != nil {
				return err
			}

			if !jsonOut {
				st := watcher.GetStatus()
				fmt.Printf("\nStopped after %d event(s), %d error(s)\n", st.EventCount, st.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Directory for exported workbooks (default: next to each input)")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "File extensions to watch (default: .json,.yaml,.yml,.csv)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only export files whose name matches this glob")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is exported")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")

	return cmd
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("invalid --delimiter %q — expected a single character", s)
	}
	return r[0], nil
}
