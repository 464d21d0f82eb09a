package xlsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/klytics/tabkit/internal/layout"
	"github.com/klytics/tabkit/internal/table"
)

func openWritten(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func styleOf(t *testing.T, f *excelize.File, sheet, cell string) *excelize.Style {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	require.NoError(t, err)
	st, err := f.GetStyle(id)
	require.NoError(t, err)
	return st
}

func TestWriteAppliesFormatsAndFonts(t *testing.T) {
	path := writeRecords(t, layout.Options{},
		table.RecordOf("Label", "@bold@Total", "Amount", "1234", "Rate", "12%"),
		table.RecordOf("Label", "@color:#FF0000@Alert", "Amount", "12.50", "Rate", "12.5%"),
	)
	f := openWritten(t, path)

	v, err := f.GetCellValue("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Total", v)
	assert.True(t, styleOf(t, f, "Sheet1", "A2").Font.Bold)
	assert.Contains(t, styleOf(t, f, "Sheet1", "A3").Font.Color, "FF0000")

	assert.Equal(t, 3, styleOf(t, f, "Sheet1", "B2").NumFmt)
	assert.Equal(t, 4, styleOf(t, f, "Sheet1", "B3").NumFmt)
	assert.Equal(t, 9, styleOf(t, f, "Sheet1", "C2").NumFmt)
	assert.Equal(t, 10, styleOf(t, f, "Sheet1", "C3").NumFmt)

	raw, err := f.GetCellValue("Sheet1", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.12", raw)
}

func TestWriteAlignment(t *testing.T) {
	path := writeRecords(t, layout.Options{},
		table.RecordOf("Items", []string{"x", "y"}),
		table.RecordOf("Items", "single"),
	)
	f := openWritten(t, path)

	header := styleOf(t, f, "Sheet1", "A1").Alignment
	require.NotNil(t, header)
	assert.Equal(t, "center", header.Horizontal)
	assert.Equal(t, "center", header.Vertical)

	wrapped := styleOf(t, f, "Sheet1", "A2").Alignment
	require.NotNil(t, wrapped)
	assert.True(t, wrapped.WrapText)
	assert.Equal(t, "center", wrapped.Vertical)

	plain := styleOf(t, f, "Sheet1", "A3").Alignment
	require.NotNil(t, plain)
	assert.False(t, plain.WrapText)
	assert.Equal(t, "", plain.Horizontal)
}

func TestWriteColumnWidthsAndFilter(t *testing.T) {
	path := writeRecords(t, layout.Options{MaxColumnWidth: 15},
		table.RecordOf("Name", "Alexandra", "VeryLongHeaderName", "x"),
		table.RecordOf("Name", "Al"),
	)
	f := openWritten(t, path)

	w, err := f.GetColWidth("Sheet1", "A")
	require.NoError(t, err)
	assert.Equal(t, 11.0, w)
	w, err = f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	assert.Equal(t, 15.0, w)

	found := false
	for _, dn := range f.GetDefinedName() {
		if strings.Contains(dn.Name, "FilterDatabase") {
			found = true
			assert.Contains(t, dn.RefersTo, "$A$1:$B$3")
		}
	}
	assert.True(t, found, "expected an auto-filter over the used range")
}

func TestWriteClampsToSpreadsheetMaximum(t *testing.T) {
	long := strings.Repeat("x", 400)
	path := writeRecords(t, layout.Options{}, table.RecordOf("Text", long))
	f := openWritten(t, path)

	w, err := f.GetColWidth("Sheet1", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(excelize.MaxColumnWidth), w)
}

func TestWriteFailsOnBadSheetName(t *testing.T) {
	wb := &layout.Workbook{Sheets: []*layout.Sheet{{Name: "bad/name?"}}}
	path := filepath.Join(t.TempDir(), "bad.xlsx")

	err := WriteFile(wb, path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteSaveError(t *testing.T) {
	wb := &layout.Workbook{Sheets: []*layout.Sheet{{Name: "S"}}}
	err := WriteFile(wb, filepath.Join(t.TempDir(), "missing-dir", "out.xlsx"))

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "save", ioErr.Op)
}

func TestWriteRejectsCaseFoldedDuplicateSheets(t *testing.T) {
	wb, err := table.Build(table.Source{Sheets: []table.SheetSource{
		{Name: "Data", Rows: []any{table.RecordOf("a", 1)}},
		{Name: "data", Rows: []any{table.RecordOf("b", 2)}},
	}})
	require.NoError(t, err)
	lw, err := layout.Build(wb, layout.Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dup.xlsx")
	err = WriteFile(lw, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"data"`)
	assert.Contains(t, err.Error(), `"Data"`)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	wb := &layout.Workbook{Sheets: []*layout.Sheet{{Name: "Fresh"}}}
	require.NoError(t, WriteFile(wb, path))

	f := openWritten(t, path)
	assert.Equal(t, []string{"Fresh"}, f.GetSheetList())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFailedRenameLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.Mkdir(path, 0755))

	wb := &layout.Workbook{Sheets: []*layout.Sheet{{Name: "S"}}}
	err := WriteFile(wb, path)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "save", ioErr.Op)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.xlsx", entries[0].Name())
}

func TestWriteHeaderIsNotBoldWithoutMarkup(t *testing.T) {
	path := writeRecords(t, layout.Options{}, table.RecordOf("Name", "Alice"))
	f := openWritten(t, path)

	st := styleOf(t, f, "Sheet1", "A1")
	if st.Font != nil {
		assert.False(t, st.Font.Bold)
	}
	assert.Equal(t, "center", st.Alignment.Horizontal)
}
