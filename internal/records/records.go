// Package records iterates record-oriented text files (CSV and plain text)
// and writes CSV output.
package records

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klytics/tabkit/internal/table"
)

// Reader yields one record per call and io.EOF when exhausted.
type Reader interface {
	Next() (*table.Record, error)
}

// ReadAll drains r.
func ReadAll(r Reader) ([]*table.Record, error) {
	var out []*table.Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// CSVReader reads CSV rows as records keyed by the header row.
type CSVReader struct {
	r      *csv.Reader
	header []string
}

// NewCSVReader reads the header row of r. A zero delimiter means ','.
func NewCSVReader(r io.Reader, delimiter rune) (*CSVReader, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &CSVReader{r: cr}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return &CSVReader{r: cr, header: header}, nil
}

// Header returns the column names.
func (c *CSVReader) Header() []string {
	return c.header
}

// Next returns the next row. Missing trailing fields are nil; fields beyond
// the header are dropped.
func (c *CSVReader) Next() (*table.Record, error) {
	if c.header == nil {
		return nil, io.EOF
	}
	row, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("could not read CSV row: %w", err)
	}

	rec := table.NewRecord()
	for i, name := range c.header {
		if i < len(row) {
			rec.Set(name, row[i])
		} else {
			rec.Set(name, nil)
		}
	}
	return rec, nil
}

// TextReader yields one record per non-empty line, stored trimmed under a
// single column.
type TextReader struct {
	s      *bufio.Scanner
	column string
}

// NewTextReader reads lines from r into records with the given column name.
func NewTextReader(r io.Reader, column string) *TextReader {
	if column == "" {
		column = "value"
	}
	return &TextReader{s: bufio.NewScanner(r), column: column}
}

// Next returns the next non-empty line.
func (t *TextReader) Next() (*table.Record, error) {
	for t.s.Scan() {
		line := strings.TrimSpace(t.s.Text())
		if line == "" {
			continue
		}
		rec := table.NewRecord()
		rec.Set(t.column, line)
		return rec, nil
	}
	if err := t.s.Err(); err != nil {
		return nil, fmt.Errorf("could not read line: %w", err)
	}
	return nil, io.EOF
}

// Open opens a .csv or .txt file as a Reader. The returned closer releases
// the file.
func Open(path string, delimiter rune, textColumn string) (Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("input file not found: %s — check that the path is correct", path)
		}
		return nil, nil, fmt.Errorf("could not open %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		r, err := NewCSVReader(f, delimiter)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return r, f, nil
	case ".txt", "":
		return NewTextReader(f, textColumn), f, nil
	default:
		f.Close()
		return nil, nil, fmt.Errorf("unsupported input %s — expected a .csv or .txt file", path)
	}
}

// CSVWriter writes records as CSV rows with a fixed column order.
type CSVWriter struct {
	w      *csv.Writer
	fields []string
}

// NewCSVWriter writes the header row to w. A zero delimiter means ','.
func NewCSVWriter(w io.Writer, fields []string, delimiter rune) (*CSVWriter, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(fields); err != nil {
		return nil, fmt.Errorf("could not write CSV header: %w", err)
	}
	return &CSVWriter{w: cw, fields: fields}, nil
}

// Write writes one record. Columns the record lacks are left empty.
func (c *CSVWriter) Write(rec *table.Record) error {
	row := make([]string, len(c.fields))
	for i, name := range c.fields {
		v, _ := rec.Get(name)
		row[i] = Format(v)
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("could not write CSV row: %w", err)
	}
	return nil
}

// Flush flushes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// Format renders a record value as text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return strings.Join(x, "\n")
	default:
		return fmt.Sprint(x)
	}
}
