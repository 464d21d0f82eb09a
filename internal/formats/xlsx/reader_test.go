package xlsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/klytics/tabkit/internal/layout"
	"github.com/klytics/tabkit/internal/table"
)

func writeRecords(t *testing.T, opts layout.Options, records ...*table.Record) string {
	t.Helper()
	wb, err := table.Build(table.FromRecords(records))
	require.NoError(t, err)
	lw, err := layout.Build(wb, opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(lw, path))
	return path
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	path := writeRecords(t, layout.Options{},
		table.RecordOf("Name", "Alice", "Age", "30", "City", "New York", "Score", "12.50"),
		table.RecordOf("Name", "Bob", "Age", "25", "City", "San Francisco", "Score", "7.25"),
	)

	records, err := ReadRecords(path, true)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"Name", "Age", "City", "Score"}, records[0].Keys())

	name, _ := records[0].Get("Name")
	assert.Equal(t, "Alice", name)
	age, _ := records[1].Get("Age")
	assert.Equal(t, int64(25), age)
	score, _ := records[0].Get("Score")
	assert.Equal(t, 12.5, score)
}

func TestReadWithoutHeader(t *testing.T) {
	path := writeRecords(t, layout.Options{},
		table.RecordOf("Name", "Alice", "Age", 30),
	)

	records, err := ReadRecords(path, false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"A", "B"}, records[0].Keys())

	h, _ := records[0].Get("A")
	assert.Equal(t, "Name", h)
	v, _ := records[1].Get("B")
	assert.Equal(t, int64(30), v)
}

func TestReadMissingValuesAreNil(t *testing.T) {
	path := writeRecords(t, layout.Options{},
		table.RecordOf("a", "x"),
		table.RecordOf("b", "y"),
	)

	records, err := ReadRecords(path, true)
	require.NoError(t, err)
	require.Len(t, records, 2)

	b, ok := records[0].Get("b")
	assert.True(t, ok)
	assert.Nil(t, b)
	a, _ := records[1].Get("a")
	assert.Nil(t, a)
}

func TestReadNamedSheet(t *testing.T) {
	src := table.Source{Sheets: []table.SheetSource{
		{Name: "First", Rows: []any{table.RecordOf("k", "one")}},
		{Name: "Second", Rows: []any{table.RecordOf("k", "two")}},
	}}
	wb, err := table.Build(src)
	require.NoError(t, err)
	lw, err := layout.Build(wb, layout.Options{})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "multi.xlsx")
	require.NoError(t, WriteFile(lw, path))

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, names)

	s, err := ReadFile(path, ReadOptions{Sheet: "Second", FirstRowAsHeader: true})
	require.NoError(t, err)
	v, _ := s.Records[0].Get("k")
	assert.Equal(t, "two", v)

	_, err = ReadFile(path, ReadOptions{Sheet: "Missing"})
	assert.Error(t, err)
}

func TestReadBytes(t *testing.T) {
	path := writeRecords(t, layout.Options{}, table.RecordOf("a", "b"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	s, err := ReadBytes(data, ReadOptions{FirstRowAsHeader: true})
	require.NoError(t, err)
	require.Len(t, s.Records, 1)
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadRecords("/nonexistent/file.xlsx", true)
	require.Error(t, err)

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.True(t, IsNotFound(err))
}

func TestReadTypedCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "n"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "1234"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", 1234))
	require.NoError(t, f.SetCellValue("Sheet1", "A4", 0.5))
	path := filepath.Join(t.TempDir(), "typed.xlsx")
	require.NoError(t, f.SaveAs(path))

	records, err := ReadRecords(path, true)
	require.NoError(t, err)
	require.Len(t, records, 3)

	v, _ := records[0].Get("n")
	assert.Equal(t, "1234", v)
	v, _ = records[1].Get("n")
	assert.Equal(t, int64(1234), v)
	v, _ = records[2].Get("n")
	assert.Equal(t, 0.5, v)
}
