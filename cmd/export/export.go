// Package export provides the "tabkit export" command.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/config"
	"github.com/klytics/tabkit/internal/export"
	"github.com/klytics/tabkit/internal/output"
	"github.com/klytics/tabkit/internal/table"
)

// NewCommand returns the export command.
func NewCommand() *cobra.Command {
	var (
		outPath   string
		dataPath  string
		format    string
		delimiter string
		sheetName string
		maxWidth  int
		locale    string
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export JSON, YAML or CSV data to a formatted .xlsx workbook",
		Long: `Creates an .xlsx workbook from record-oriented data.

A JSON/YAML object maps sheet names to lists of records; a bare list is a
single "Sheet1". CSV input is one sheet whose header row names the columns.

Cells are typed and formatted automatically:
  "1,234"   integer        #,##0
  "1,234.5" decimal        #,##0.00
  "12.5%"   percentage     0.00%
  "12%"     percentage     0%
  "@bold@@color:#FF0000@Total"  bold red text "Total"

Headers are centered, multi-line cells wrap, column widths follow
the longest line, and an auto-filter covers the whole table.

Examples:
  tabkit export --data ventas.json --output ventas.xlsx
  tabkit export --data articulos.csv --delimiter ";" --locale es --output articulos.xlsx
  cat report.yaml | tabkit export --data - --format yaml --output report.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			if dataPath == "" {
				return fmt.Errorf("--data is required — provide a .json, .yaml or .csv file or - for stdin\n\nExample: tabkit export --data input.json --output data.xlsx")
			}
			if outPath == "" {
				if dataPath == "-" {
					return fmt.Errorf("--output is required when reading from stdin\n\nExample: tabkit export --data - --output data.xlsx")
				}
				outPath = strings.TrimSuffix(dataPath, filepath.Ext(dataPath))
			}
			if !strings.HasSuffix(strings.ToLower(outPath), ".xlsx") {
				outPath += ".xlsx"
			}

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
			if cmd.Flags().Changed("max-width") {
				opts.MaxColumnWidth = maxWidth
			}
			if cmd.Flags().Changed("locale") {
				opts.Locale = locale
			}
			if cmd.Flags().Changed("strict") {
				opts.StrictMarkup = strict
			}

			var src table.Source
			if dataPath == "-" {
				src, err = export.Load(os.Stdin, format, delim)
			} else {
				src, err = export.LoadFile(dataPath, delim)
			}
			if err != nil {
				return err
			}

			if sheetName != "" {
				if len(src.Sheets) != 1 {
					return fmt.Errorf("--sheet only applies to single-sheet input, got %d sheets", len(src.Sheets))
				}
				src.Sheets[0].Name = sheetName
			}

			stats, err := export.File(src, outPath, opts)
			if err != nil {
				return err
			}

			if jsonFlag {
				return output.JSON(os.Stdout, stats)
			}

			color.New(color.FgGreen).Printf("Wrote %s", stats.Path)
			fmt.Printf(" (%d sheets, %s rows, %s)\n",
				stats.Sheets, humanize.Comma(int64(stats.Rows)), humanize.Bytes(uint64(stats.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Input .json, .yaml/.yml or .csv file (or - for stdin)")
	cmd.Flags().StringVar(&outPath, "output", "", "Output .xlsx file path (default: input name with .xlsx)")
	cmd.Flags().StringVar(&format, "format", "json", "Input format when reading stdin: json | yaml | csv")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name for single-sheet input")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Maximum column width in characters (0 = unlimited)")
	cmd.Flags().StringVar(&locale, "locale", "en", "Numeric separators: en (1,234.5) | es (1.234,5)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on malformed @bold@/@color:...@ markup")

	return cmd
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid --delimiter %q — expected a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
