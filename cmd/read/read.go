// Package read provides the "tabkit read" command.
package read

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/klytics/tabkit/internal/formats/xlsx"
	"github.com/klytics/tabkit/internal/output"
	"github.com/klytics/tabkit/internal/records"
)

const maxCellWidth = 40

// NewCommand returns the read command.
func NewCommand() *cobra.Command {
	var (
		sheetName string
		csvOutput bool
		noHeader  bool
		listOnly  bool
		noPager   bool
	)

	cmd := &cobra.Command{
		Use:   "read <file.xlsx>",
		Short: "Read records from an .xlsx workbook",
		Long: `Reads one worksheet of an .xlsx file as records. Numbers come back typed,
text as text and empty cells as null. Outputs JSON (--json), CSV (--csv) or a
table. Pass '-' to read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			opts := xlsx.ReadOptions{Sheet: sheetName, FirstRowAsHeader: !noHeader}

			if listOnly {
				if len(args) == 0 || args[0] == "-" {
					return fmt.Errorf("--sheets needs a file path")
				}
				names, err := xlsx.SheetNames(args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					return encodeJSON(names)
				}
				for _, n := range names {
					fmt.Println(n)
				}
				return nil
			}

			var sheet *xlsx.Sheet
			var err error
			if len(args) == 0 || args[0] == "-" {
				data, readErr := io.ReadAll(os.Stdin)
				if readErr != nil {
					return fmt.Errorf("could not read from stdin: %w", readErr)
				}
				if len(data) == 0 {
					return fmt.Errorf("no input provided — pass an .xlsx file path or pipe data to stdin")
				}
				sheet, err = xlsx.ReadBytes(data, opts)
			} else {
				filePath := args[0]
				if !strings.HasSuffix(strings.ToLower(filePath), ".xlsx") {
					return fmt.Errorf("expected an .xlsx file, got %q — use 'tabkit read <file.xlsx>'", filePath)
				}
				sheet, err = xlsx.ReadFile(filePath, opts)
			}
			if err != nil {
				return err
			}

			switch {
			case jsonFlag:
				return encodeJSON(sheet)
			case csvOutput:
				return outputCSV(os.Stdout, sheet)
			default:
				var buf bytes.Buffer
				outputPretty(&buf, sheet)
				if !noPager && output.ShouldPage(buf.String()) {
					return output.Page(buf.String())
				}
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", "", "Read the named sheet instead of the active one")
	cmd.Flags().BoolVar(&csvOutput, "csv", false, "Output as CSV")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "Treat the first row as data; name columns A, B, ...")
	cmd.Flags().BoolVar(&listOnly, "sheets", false, "List sheet names and exit")
	cmd.Flags().BoolVar(&noPager, "no-pager", false, "Never pipe long tables through $PAGER")

	return cmd
}

func encodeJSON(v any) error {
	return output.JSON(os.Stdout, v)
}

func outputCSV(w io.Writer, sheet *xlsx.Sheet) error {
	cw, err := records.NewCSVWriter(w, sheet.Columns, ',')
	if err != nil {
		return err
	}
	for _, rec := range sheet.Records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return cw.Flush()
}

func outputPretty(w io.Writer, sheet *xlsx.Sheet) {
	headerStyle := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.FgHiBlack)

	headerStyle.Fprintf(w, "Sheet: %s\n", sheet.Name)
	if len(sheet.Columns) == 0 {
		dim.Fprintln(w, "  (empty)")
		return
	}

	rows := make([][]string, 0, len(sheet.Records))
	for _, rec := range sheet.Records {
		row := make([]string, len(sheet.Columns))
		for i, c := range sheet.Columns {
			v, _ := rec.Get(c)
			row[i] = strings.ReplaceAll(records.Format(v), "\n", " ")
		}
		rows = append(rows, row)
	}

	widths := columnWidths(sheet.Columns, rows)

	printRow(w, sheet.Columns, widths, color.New(color.Bold))
	dim.Fprint(w, "  ")
	for j, width := range widths {
		if j > 0 {
			dim.Fprint(w, "+-")
		}
		dim.Fprint(w, strings.Repeat("-", width+1))
	}
	dim.Fprintln(w)

	for _, row := range rows {
		printRow(w, row, widths, nil)
	}
	dim.Fprintf(w, "  (%d rows)\n", len(rows))
}

// columnWidths measures display width, so wide runes count double.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	measure := func(row []string) {
		for j, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[j] {
				widths[j] = n
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	for i := range widths {
		widths[i] = min(max(widths[i], 3), maxCellWidth)
	}
	return widths
}

func printRow(w io.Writer, row []string, widths []int, style *color.Color) {
	fmt.Fprint(w, "  ")
	for j, width := range widths {
		if j > 0 {
			fmt.Fprint(w, "| ")
		}
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		cell = runewidth.Truncate(cell, width, "~")
		padded := runewidth.FillRight(cell, width+1)
		if style != nil {
			style.Fprint(w, padded)
		} else {
			fmt.Fprint(w, padded)
		}
	}
	fmt.Fprintln(w)
}
