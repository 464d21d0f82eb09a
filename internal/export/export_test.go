package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klytics/tabkit/internal/formats/xlsx"
	"github.com/klytics/tabkit/internal/table"
)

func TestFileRoundTrip(t *testing.T) {
	src, err := Load(strings.NewReader(`[
		{"Name": "Ibuprofeno", "Units": "1,234", "Share": "12.5%"},
		{"Name": "@bold@Total", "Units": "2,000"}
	]`), "json", 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	stats, err := File(src, path, Options{MaxColumnWidth: 40})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sheets)
	assert.Equal(t, 2, stats.Rows)
	assert.Greater(t, stats.Bytes, int64(0))

	recs, err := xlsx.ReadRecords(path, true)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	v, _ := recs[0].Get("Name")
	assert.Equal(t, "Ibuprofeno", v)
	v, _ = recs[0].Get("Units")
	assert.Equal(t, int64(1234), v)
	v, _ = recs[0].Get("Share")
	assert.InDelta(t, 0.125, v, 1e-9)

	v, _ = recs[1].Get("Name")
	assert.Equal(t, "Total", v)
	v, _ = recs[1].Get("Share")
	assert.Nil(t, v)
}

func TestFileShapeErrorLeavesNoFile(t *testing.T) {
	src := table.FromRows([]any{table.RecordOf("a", 1), "not a record"})
	path := filepath.Join(t.TempDir(), "out.xlsx")

	_, err := File(src, path, Options{})
	var shapeErr *table.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 1, shapeErr.Row)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileUnknownLocale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	_, err := File(table.FromRows(nil), path, Options{Locale: "fr"})
	assert.Error(t, err)
}

func TestFileSpanishLocale(t *testing.T) {
	src := table.FromRows([]any{table.RecordOf("Importe", "1.234,50")})
	path := filepath.Join(t.TempDir(), "out.xlsx")

	_, err := File(src, path, Options{Locale: "es"})
	require.NoError(t, err)

	recs, err := xlsx.ReadRecords(path, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v, _ := recs[0].Get("Importe")
	assert.InDelta(t, 1234.5, v, 1e-9)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		return p
	}

	src, err := LoadFile(write("in.json", `{"Ventas": [{"a": 1}], "Stock": [{"b": 2}]}`), 0)
	require.NoError(t, err)
	require.Len(t, src.Sheets, 2)
	assert.Equal(t, "Ventas", src.Sheets[0].Name)
	assert.Equal(t, "Stock", src.Sheets[1].Name)

	src, err = LoadFile(write("in.yaml", "- a: 1\n  b: x\n- a: 2\n"), 0)
	require.NoError(t, err)
	require.Len(t, src.Sheets, 1)
	assert.Len(t, src.Sheets[0].Rows, 2)

	src, err = LoadFile(write("in.csv", "a;b\n1;2\n3;4\n"), ';')
	require.NoError(t, err)
	require.Len(t, src.Sheets, 1)
	assert.Len(t, src.Sheets[0].Rows, 2)

	_, err = LoadFile(filepath.Join(dir, "missing.json"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = LoadFile(write("in.toml", "a = 1"), 0)
	assert.Error(t, err)
}
