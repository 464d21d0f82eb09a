// Package xlsx provides reading and writing capabilities for .xlsx (Excel) files.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/tabkit/internal/table"
)

// IOError reports a failure to open, read or save a spreadsheet file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("could not %s spreadsheet: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("could not %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Sheet is the records of a single worksheet.
type Sheet struct {
	Name    string          `json:"name"`
	Columns []string        `json:"columns"`
	Records []*table.Record `json:"records"`
}

// ReadOptions controls how worksheets are turned into records.
type ReadOptions struct {
	// Sheet selects a worksheet by name. Empty means the active sheet.
	Sheet string
	// FirstRowAsHeader takes column names from the first row. Otherwise
	// columns are named by their letter (A, B, ...).
	FirstRowAsHeader bool
}

// ReadRecords reads the active sheet of an .xlsx file as records.
func ReadRecords(path string, firstRowAsHeader bool) ([]*table.Record, error) {
	s, err := ReadFile(path, ReadOptions{FirstRowAsHeader: firstRowAsHeader})
	if err != nil {
		return nil, err
	}
	return s.Records, nil
}

// ReadFile reads one worksheet of an .xlsx file.
func ReadFile(path string, opts ReadOptions) (*Sheet, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &IOError{Op: "open", Path: path, Err: fmt.Errorf("file not found — check that the path is correct: %w", err)}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: fmt.Errorf("is this a valid .xlsx file? %w", err)}
	}
	defer f.Close()

	return readSheet(f, opts)
}

// ReadBytes reads one worksheet of an .xlsx file held in memory.
func ReadBytes(data []byte, opts ReadOptions) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	defer f.Close()

	return readSheet(f, opts)
}

// SheetNames lists the worksheets of an .xlsx file in order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func readSheet(f *excelize.File, opts ReadOptions) (*Sheet, error) {
	name := opts.Sheet
	if name == "" {
		name = f.GetSheetName(f.GetActiveSheetIndex())
	} else if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found — available sheets: %v", name, f.GetSheetList())
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &IOError{Op: "read sheet " + strconv.Quote(name) + " of", Path: f.Path, Err: err}
	}

	sheet := &Sheet{Name: name}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	start := 0
	if opts.FirstRowAsHeader && len(rows) > 0 {
		start = 1
		for i := 0; i < width; i++ {
			h := ""
			if i < len(rows[0]) {
				h = rows[0][i]
			}
			if h == "" {
				h = columnLetter(i)
			}
			sheet.Columns = append(sheet.Columns, h)
		}
	} else {
		for i := 0; i < width; i++ {
			sheet.Columns = append(sheet.Columns, columnLetter(i))
		}
	}

	for r := start; r < len(rows); r++ {
		rec := table.NewRecord()
		for c, col := range sheet.Columns {
			var v any
			if c < len(rows[r]) {
				v = cellValue(f, name, c, r, rows[r][c])
			}
			rec.Set(col, v)
		}
		sheet.Records = append(sheet.Records, rec)
	}

	return sheet, nil
}

// cellValue types a raw cell: numbers come back as int64 when integral,
// float64 otherwise; text stays text; empty is nil.
func cellValue(f *excelize.File, sheet string, col, row int, raw string) any {
	if raw == "" {
		return nil
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw
	}
	ct, err := f.GetCellType(sheet, ref)
	if err != nil {
		return raw
	}
	switch ct {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true"
	default:
		return raw
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return int64(v)
	}
	return v
}

func columnLetter(i int) string {
	name, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return strconv.Itoa(i)
	}
	return name
}

// IsNotFound reports whether err is an IOError caused by a missing file.
func IsNotFound(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr) && errors.Is(ioErr.Err, os.ErrNotExist)
}
