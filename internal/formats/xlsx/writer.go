package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/tabkit/internal/layout"
)

// WriteFile creates a new .xlsx file from a laid-out workbook. The workbook
// is written to a temporary file next to path and renamed into place, so
// path is either the complete new file or untouched.
func WriteFile(wb *layout.Workbook, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := fill(f, wb); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return &IOError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	committed = true
	return nil
}

func fill(f *excelize.File, wb *layout.Workbook) error {
	styles := newStyleCache(f)
	seen := make(map[string]string, len(wb.Sheets))

	for i, sheet := range wb.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}
		// Sheet names compare case-insensitively in a workbook.
		folded := strings.ToLower(sheetName)
		if prev, ok := seen[folded]; ok {
			return fmt.Errorf("duplicate sheet name %q — conflicts with %q (sheet names are case-insensitive)", sheetName, prev)
		}
		seen[folded] = sheetName

		if i == 0 {
			// Rename default sheet
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
				return fmt.Errorf("could not rename sheet to %q: %w", sheetName, err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return fmt.Errorf("could not create sheet %q: %w", sheetName, err)
			}
		}

		if err := writeSheet(f, styles, sheetName, sheet); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(f *excelize.File, styles *styleCache, name string, sheet *layout.Sheet) error {
	for rowIdx, row := range sheet.Cells {
		for colIdx, cell := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates: %w", err)
			}
			if cell.Value != nil {
				if err := f.SetCellValue(name, cellName, cell.Value); err != nil {
					return fmt.Errorf("could not set cell %s!%s: %w", name, cellName, err)
				}
			}
			styleID, err := styles.get(cell)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cellName, cellName, styleID); err != nil {
				return fmt.Errorf("could not style cell %s!%s: %w", name, cellName, err)
			}
		}
	}

	for colIdx, width := range sheet.Widths {
		col, err := excelize.ColumnNumberToName(colIdx + 1)
		if err != nil {
			return fmt.Errorf("invalid column %d: %w", colIdx+1, err)
		}
		w := float64(width)
		if w > excelize.MaxColumnWidth {
			w = excelize.MaxColumnWidth
		}
		if err := f.SetColWidth(name, col, col, w); err != nil {
			return fmt.Errorf("could not set width of column %s: %w", col, err)
		}
	}

	if sheet.FilterRange != "" {
		if err := f.AutoFilter(name, sheet.FilterRange, nil); err != nil {
			return fmt.Errorf("could not add auto-filter %s to sheet %q: %w", sheet.FilterRange, name, err)
		}
	}
	return nil
}

// styleCache creates one excelize style per distinct combination of font,
// alignment and number format.
type styleCache struct {
	f   *excelize.File
	ids map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: make(map[string]int)}
}

func (c *styleCache) get(cell layout.Cell) (int, error) {
	key := fmt.Sprintf("%s|%d|%s", cell.Style.Key(), cell.Align, cell.Format.Pattern)
	if id, ok := c.ids[key]; ok {
		return id, nil
	}

	style := &excelize.Style{Alignment: alignment(cell.Align)}
	if !cell.Style.IsZero() {
		style.Font = &excelize.Font{Bold: cell.Style.Bold, Color: cell.Style.Color}
	}
	if cell.Format.IsNumber() {
		if id := cell.Format.BuiltinID(); id != 0 {
			style.NumFmt = id
		} else {
			pattern := cell.Format.Pattern
			style.CustomNumFmt = &pattern
		}
	}

	id, err := c.f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("could not create cell style: %w", err)
	}
	c.ids[key] = id
	return id, nil
}

func alignment(a layout.Alignment) *excelize.Alignment {
	switch a {
	case layout.AlignHeader:
		return &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	case layout.AlignWrap:
		return &excelize.Alignment{Vertical: "center", WrapText: true}
	default:
		return &excelize.Alignment{Vertical: "center"}
	}
}
