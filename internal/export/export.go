// Package export turns record-oriented input into a formatted .xlsx file:
// build the tables, lay them out, write them.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klytics/tabkit/internal/formats/xlsx"
	"github.com/klytics/tabkit/internal/layout"
	"github.com/klytics/tabkit/internal/numfmt"
	"github.com/klytics/tabkit/internal/records"
	"github.com/klytics/tabkit/internal/table"
)

// Options configures an export.
type Options struct {
	// MaxColumnWidth caps column widths. Zero means unlimited.
	MaxColumnWidth int
	// Locale selects the numeric separator convention ("en", "es").
	Locale string
	// StrictMarkup fails the export on malformed markup directives.
	StrictMarkup bool
}

// Stats describes a finished export.
type Stats struct {
	Path   string `json:"file"`
	Sheets int    `json:"sheets"`
	Rows   int    `json:"rows"`
	Bytes  int64  `json:"bytes"`
}

// File exports src to an .xlsx file at path. Shape and markup errors are
// reported before the file is created.
func File(src table.Source, path string, opts Options) (*Stats, error) {
	conv, err := numfmt.ConventionFor(opts.Locale)
	if err != nil {
		return nil, err
	}

	wb, err := table.Build(src)
	if err != nil {
		return nil, err
	}

	laid, err := layout.Build(wb, layout.Options{
		MaxColumnWidth: opts.MaxColumnWidth,
		Convention:     conv,
		StrictMarkup:   opts.StrictMarkup,
	})
	if err != nil {
		return nil, err
	}

	if err := xlsx.WriteFile(laid, path); err != nil {
		return nil, err
	}

	stats := &Stats{Path: path, Sheets: len(wb.Sheets)}
	for _, t := range wb.Sheets {
		stats.Rows += t.Rows
	}
	if info, err := os.Stat(path); err == nil {
		stats.Bytes = info.Size()
	}
	return stats, nil
}

// LoadFile reads an input file into a Source, choosing the decoder from the
// file extension: .json, .yaml/.yml or .csv.
func LoadFile(path string, csvDelimiter rune) (table.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return table.Source{}, fmt.Errorf("input file not found: %s — check that the path is correct", path)
		}
		return table.Source{}, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f, filepath.Ext(path), csvDelimiter)
}

// Load reads input of the given format ("json", "yaml", "yml" or "csv").
func Load(r io.Reader, format string, csvDelimiter rune) (table.Source, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "csv" {
		cr, err := records.NewCSVReader(r, csvDelimiter)
		if err != nil {
			return table.Source{}, err
		}
		recs, err := records.ReadAll(cr)
		if err != nil {
			return table.Source{}, err
		}
		return table.FromRecords(recs), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return table.Source{}, fmt.Errorf("could not read input: %w", err)
	}
	return table.Decode(data, format)
}
