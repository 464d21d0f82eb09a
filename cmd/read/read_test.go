package read

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/klytics/tabkit/internal/formats/xlsx"
	"github.com/klytics/tabkit/internal/table"
)

func testSheet() *xlsx.Sheet {
	return &xlsx.Sheet{
		Name:    "Ventas",
		Columns: []string{"Producto", "Unidades"},
		Records: []*table.Record{
			table.RecordOf("Producto", "Ibuprofeno", "Unidades", int64(1200)),
			table.RecordOf("Producto", "日本語テキスト", "Unidades", nil),
		},
	}
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([]string{"id", "name"}, [][]string{{"1", "日本"}, {"22", strings.Repeat("x", 60)}})
	if widths[0] != 3 {
		t.Errorf("width[0] = %d, want minimum 3", widths[0])
	}
	if widths[1] != maxCellWidth {
		t.Errorf("width[1] = %d, want cap %d", widths[1], maxCellWidth)
	}

	widths = columnWidths([]string{"a"}, [][]string{{"日本"}})
	if widths[0] != 4 {
		t.Errorf("wide runes should count double, got %d", widths[0])
	}
}

func TestOutputPretty(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	outputPretty(&buf, testSheet())

	out := buf.String()
	for _, want := range []string{"Sheet: Ventas", "Producto", "Ibuprofeno", "1200", "(2 rows)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestOutputCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := outputCSV(&buf, testSheet()); err != nil {
		t.Fatal(err)
	}
	want := "Producto,Unidades\nIbuprofeno,1200\n日本語テキスト,\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}
