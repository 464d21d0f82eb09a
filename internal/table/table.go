// Package table reshapes record-oriented input into column-oriented tables,
// one per sheet, ready for formatting.
package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultSheetName names the single sheet produced from a bare row list.
const DefaultSheetName = "Sheet1"

// SheetSource is the raw input of one sheet. Rows are expected to be
// *Record or map[string]any values; anything else makes Build fail with a
// ShapeError. Map rows have no key order, so their keys are taken sorted.
type SheetSource struct {
	Name string
	Rows []any
}

// Source is the raw, ordered input of a workbook.
type Source struct {
	Sheets []SheetSource
}

// FromRows wraps a bare row list as a single-sheet source.
func FromRows(rows []any) Source {
	return Source{Sheets: []SheetSource{{Name: DefaultSheetName, Rows: rows}}}
}

// FromRecords is FromRows for already typed records.
func FromRecords(records []*Record) Source {
	rows := make([]any, len(records))
	for i, r := range records {
		rows[i] = r
	}
	return FromRows(rows)
}

// Kind is the type of a cell value after building.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
)

// Cell is a single scalar value of a table.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
}

// Null is the empty cell.
var Null = Cell{}

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: KindText, Text: s} }

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: KindNumber, Number: v} }

// String renders the cell the way the formatting stages see it.
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Table is the column-oriented representation of one sheet.
type Table struct {
	Name    string
	Columns []Column
	Rows    int
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Workbook is an ordered set of tables.
type Workbook struct {
	Sheets []*Table
}

// Sheet returns the table with the given name.
func (wb *Workbook) Sheet(name string) (*Table, bool) {
	for _, t := range wb.Sheets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// ShapeError reports input rows that are not uniformly mapping shaped, or
// cell values the builder cannot represent.
type ShapeError struct {
	Sheet  string
	Row    int
	Column string
	Got    string
}

func (e *ShapeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("sheet %q: expected a list of records, got %s", e.Sheet, e.Got)
	}
	if e.Column != "" {
		return fmt.Sprintf("sheet %q row %d column %q: unsupported cell value of type %s", e.Sheet, e.Row+1, e.Column, e.Got)
	}
	return fmt.Sprintf("sheet %q row %d: expected a record, got %s", e.Sheet, e.Row+1, e.Got)
}

// Build reshapes src into a workbook. Every sheet is validated before any
// table is built, so a ShapeError never leaves a partial workbook behind.
func Build(src Source) (*Workbook, error) {
	for _, s := range src.Sheets {
		if err := validateSheet(s); err != nil {
			return nil, err
		}
	}

	wb := &Workbook{Sheets: make([]*Table, 0, len(src.Sheets))}
	for _, s := range src.Sheets {
		wb.Sheets = append(wb.Sheets, buildSheet(s))
	}
	return wb, nil
}

func validateSheet(s SheetSource) error {
	for i, row := range s.Rows {
		rec, ok := asRecord(row)
		if !ok {
			return &ShapeError{Sheet: s.Name, Row: i, Got: describe(row)}
		}
		for _, k := range rec.keys {
			if _, err := toCell(rec.values[k]); err != nil {
				return &ShapeError{Sheet: s.Name, Row: i, Column: k, Got: describe(rec.values[k])}
			}
		}
	}
	return nil
}

func buildSheet(s SheetSource) *Table {
	t := &Table{Name: s.Name, Rows: len(s.Rows)}
	index := make(map[string]int)

	for rowIdx, row := range s.Rows {
		rec, _ := asRecord(row)
		for _, k := range rec.keys {
			col, ok := index[k]
			if !ok {
				col = len(t.Columns)
				index[k] = col
				t.Columns = append(t.Columns, Column{Name: k, Cells: make([]Cell, len(s.Rows))})
			}
			c, _ := toCell(rec.values[k])
			t.Columns[col].Cells[rowIdx] = c
		}
	}
	return t
}

func asRecord(row any) (*Record, bool) {
	switch r := row.(type) {
	case *Record:
		return r, r != nil
	case map[string]any:
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := NewRecord()
		for _, k := range keys {
			rec.Set(k, r[k])
		}
		return rec, true
	default:
		return nil, false
	}
}

// toCell normalizes a raw value. Lists are flattened to newline-joined text.
func toCell(v any) (Cell, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case string:
		return TextCell(x), nil
	case bool:
		return TextCell(strconv.FormatBool(x)), nil
	case float64:
		return NumberCell(x), nil
	case float32:
		return NumberCell(float64(x)), nil
	case int:
		return NumberCell(float64(x)), nil
	case int64:
		return NumberCell(float64(x)), nil
	case int32:
		return NumberCell(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return TextCell(x.String()), nil
		}
		return NumberCell(f), nil
	case []string:
		return TextCell(strings.Join(x, "\n")), nil
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			c, err := toCell(item)
			if err != nil {
				return Null, err
			}
			if _, nested := item.([]any); nested {
				return Null, fmt.Errorf("nested list")
			}
			parts[i] = c.String()
		}
		return TextCell(strings.Join(parts, "\n")), nil
	default:
		return Null, fmt.Errorf("unsupported value %T", v)
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any, []string:
		return "list"
	case string:
		return "string"
	case map[string]any, *Record:
		return "mapping"
	case bool:
		return "bool"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
