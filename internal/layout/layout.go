// Package layout decides, in one pass over each sheet's grid, how every cell
// is written: its display value, font style, number format and alignment,
// plus each column's width and the sheet's auto-filter range.
package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/tabkit/internal/markup"
	"github.com/klytics/tabkit/internal/numfmt"
	"github.com/klytics/tabkit/internal/table"
)

const (
	headerPadding = 5
	cellPadding   = 2
)

// Alignment is the alignment rule of a cell.
type Alignment int

const (
	// AlignDefault centers vertically without wrapping.
	AlignDefault Alignment = iota
	// AlignHeader centers on both axes.
	AlignHeader
	// AlignWrap wraps text and centers vertically.
	AlignWrap
)

func (a Alignment) String() string {
	switch a {
	case AlignHeader:
		return "header"
	case AlignWrap:
		return "wrap"
	default:
		return "default"
	}
}

// AlignFor returns the alignment of a cell at row holding display text.
func AlignFor(row int, text string) Alignment {
	if row == 0 {
		return AlignHeader
	}
	if strings.Contains(text, "\n") {
		return AlignWrap
	}
	return AlignDefault
}

// Options configures the layout.
type Options struct {
	// MaxColumnWidth caps computed widths. Zero means unlimited.
	MaxColumnWidth int
	// Convention fixes numeric separators. The zero value means English.
	Convention numfmt.Convention
	// StrictMarkup turns leftover directive-like text into a ParseError.
	StrictMarkup bool
}

// Cell is a fully decided cell.
type Cell struct {
	Text   string
	Value  any // nil, string or float64
	Style  markup.Style
	Format numfmt.Format
	Align  Alignment
}

// Sheet is a sheet ready to be written. Cells is indexed [row][column] and
// row 0 is the header.
type Sheet struct {
	Name        string
	Cells       [][]Cell
	Widths      []int
	FilterRange string
}

// Workbook is the formatted counterpart of a table.Workbook.
type Workbook struct {
	Sheets []*Sheet
}

// Build lays out every sheet of wb.
func Build(wb *table.Workbook, opts Options) (*Workbook, error) {
	conv := opts.Convention
	if conv.Decimal == 0 {
		conv = numfmt.English
	}
	classifier := numfmt.New(conv)

	out := &Workbook{Sheets: make([]*Sheet, 0, len(wb.Sheets))}
	for _, t := range wb.Sheets {
		s, err := buildSheet(t, classifier, opts)
		if err != nil {
			return nil, err
		}
		out.Sheets = append(out.Sheets, s)
	}
	return out, nil
}

func buildSheet(t *table.Table, classifier *numfmt.Classifier, opts Options) (*Sheet, error) {
	s := &Sheet{
		Name:   t.Name,
		Cells:  make([][]Cell, t.Rows+1),
		Widths: make([]int, len(t.Columns)),
	}
	for r := range s.Cells {
		s.Cells[r] = make([]Cell, len(t.Columns))
	}

	for c, col := range t.Columns {
		var w WidthTracker
		for r := 0; r <= t.Rows; r++ {
			raw := table.TextCell(col.Name)
			if r > 0 {
				raw = col.Cells[r-1]
			}
			cell, err := decide(raw, r, classifier, opts.StrictMarkup)
			if err != nil {
				ref, _ := excelize.CoordinatesToCellName(c+1, r+1)
				return nil, fmt.Errorf("sheet %q cell %s: %w", t.Name, ref, err)
			}
			w.Observe(r, cell.Text)
			s.Cells[r][c] = cell
		}
		s.Widths[c] = w.Width(opts.MaxColumnWidth)
	}

	if len(t.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Columns), t.Rows+1)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", t.Name, err)
		}
		s.FilterRange = "A1:" + last
	}
	return s, nil
}

// decide runs markup parsing and, for unstyled text cells, numeric
// classification. Typed numbers keep their value.
func decide(raw table.Cell, row int, classifier *numfmt.Classifier, strict bool) (Cell, error) {
	if raw.IsNull() {
		return Cell{Align: AlignFor(row, "")}, nil
	}
	if raw.Kind == table.KindNumber {
		text := raw.String()
		cell := Cell{Text: text, Value: text, Align: AlignFor(row, text)}
		if f := numfmt.FromNumber(raw.Number); f.IsNumber() {
			cell.Format = f
			cell.Value = f.Value
		}
		return cell, nil
	}

	var (
		text string
		st   markup.Style
	)
	if strict {
		var err error
		text, st, err = markup.ParseStrict(raw.String())
		if err != nil {
			return Cell{}, err
		}
	} else {
		text, st = markup.Parse(raw.String())
	}

	cell := Cell{Text: text, Value: text, Style: st, Align: AlignFor(row, text)}
	if !st.IsZero() {
		return cell, nil
	}
	if f := classifier.Classify(text); f.IsNumber() {
		cell.Format = f
		cell.Value = f.Value
	}
	return cell, nil
}

// WidthTracker accumulates the longest trimmed line seen in a column.
// Ties keep the earliest row.
type WidthTracker struct {
	longest int
	row     int
	seen    bool
}

// Observe records the lines of text found at row.
func (w *WidthTracker) Observe(row int, text string) {
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(strings.TrimSpace(line))
		if n > w.longest {
			w.longest = n
			w.row = row
			w.seen = true
		}
	}
}

// Width returns the column width, clamped to max when max is positive.
func (w *WidthTracker) Width(max int) int {
	width := w.longest + cellPadding
	if w.seen && w.row == 0 {
		width = w.longest + headerPadding
	}
	if max > 0 && width > max {
		width = max
	}
	return width
}
