package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klytics/tabkit/internal/markup"
	"github.com/klytics/tabkit/internal/numfmt"
	"github.com/klytics/tabkit/internal/table"
)

func build(t *testing.T, opts Options, records ...*table.Record) *Sheet {
	t.Helper()
	wb, err := table.Build(table.FromRecords(records))
	require.NoError(t, err)
	out, err := Build(wb, opts)
	require.NoError(t, err)
	require.Len(t, out.Sheets, 1)
	return out.Sheets[0]
}

func TestWidthLongestDataCell(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("Name", "Al"),
		table.RecordOf("Name", "Alexandra"),
	)
	assert.Equal(t, []int{11}, s.Widths)
}

func TestWidthHeaderLongest(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("VeryLongHeaderName", "Al"),
		table.RecordOf("VeryLongHeaderName", "Alexandra"),
	)
	assert.Equal(t, []int{23}, s.Widths)
}

func TestWidthClamped(t *testing.T) {
	s := build(t, Options{MaxColumnWidth: 15},
		table.RecordOf("Name", "Alexandra", "VeryLongHeaderName", "x"),
	)
	assert.Equal(t, []int{11, 15}, s.Widths)

	s = build(t, Options{MaxColumnWidth: 10},
		table.RecordOf("Name", "Alexandra", "VeryLongHeaderName", "x"),
	)
	assert.Equal(t, []int{10, 10}, s.Widths)
}

func TestWidthUsesLongestLineOfMultilineCells(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("Notes", []string{"short", "  a much longer line  ", "mid"}),
	)
	// "a much longer line" is 18 characters once trimmed.
	assert.Equal(t, []int{20}, s.Widths)
}

func TestWidthEmptyColumnUsesHeader(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("Comment", nil),
		table.RecordOf("Comment", ""),
	)
	assert.Equal(t, []int{12}, s.Widths)
}

func TestWidthCountsCharactersNotBytes(t *testing.T) {
	s := build(t, Options{}, table.RecordOf("N", "Ñandú"))
	assert.Equal(t, []int{7}, s.Widths)
}

func TestWidthTrackerTieKeepsEarliestRow(t *testing.T) {
	var w WidthTracker
	w.Observe(0, "abcd")
	w.Observe(1, "wxyz")
	assert.Equal(t, 9, w.Width(0))

	var empty WidthTracker
	assert.Equal(t, 2, empty.Width(0))
}

func TestAlignment(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("Items", []string{"x", "y", "z"}),
		table.RecordOf("Items", "single"),
	)
	assert.Equal(t, AlignHeader, s.Cells[0][0].Align)
	assert.Equal(t, AlignWrap, s.Cells[1][0].Align)
	assert.Equal(t, "x\ny\nz", s.Cells[1][0].Text)
	assert.Equal(t, AlignDefault, s.Cells[2][0].Align)
}

func TestMarkupAndNumbersAreExclusive(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("Label", "@bold@Total", "Amount", "1234"),
		table.RecordOf("Label", "@color:#FF0000@12%", "Amount", "12.50"),
		table.RecordOf("Label", "N/A", "Amount", 0.125),
	)

	total := s.Cells[1][0]
	assert.Equal(t, "Total", total.Value)
	assert.Equal(t, markup.Style{Bold: true}, total.Style)
	assert.False(t, total.Format.IsNumber())

	styledPercent := s.Cells[2][0]
	assert.Equal(t, "12%", styledPercent.Value)
	assert.Equal(t, "FF0000", styledPercent.Style.Color)
	assert.False(t, styledPercent.Format.IsNumber())

	amount := s.Cells[1][1]
	assert.Equal(t, numfmt.Integer, amount.Format.Kind)
	assert.Equal(t, 1234.0, amount.Value)

	decimal := s.Cells[2][1]
	assert.Equal(t, numfmt.Decimal, decimal.Format.Kind)
	assert.Equal(t, 12.5, decimal.Value)

	fromNumber := s.Cells[3][1]
	assert.Equal(t, numfmt.Decimal, fromNumber.Format.Kind)
	assert.Equal(t, "0.125", fromNumber.Text)

	plain := s.Cells[3][0]
	assert.Equal(t, "N/A", plain.Value)
	assert.Equal(t, numfmt.None, plain.Format.Kind)
}

func TestNullCellsHaveNoValue(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("a", 1),
		table.RecordOf("b", 2),
	)
	assert.Nil(t, s.Cells[2][0].Value)
	assert.Nil(t, s.Cells[1][1].Value)
}

func TestFilterRange(t *testing.T) {
	s := build(t, Options{},
		table.RecordOf("a", 1, "b", 2, "c", 3),
		table.RecordOf("a", 4),
	)
	assert.Equal(t, "A1:C3", s.FilterRange)

	wb, err := Build(&table.Workbook{Sheets: []*table.Table{{Name: "Empty"}}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "", wb.Sheets[0].FilterRange)
}

func TestSpanishConvention(t *testing.T) {
	s := build(t, Options{Convention: numfmt.Spanish},
		table.RecordOf("Precio", "1.234,50"),
	)
	assert.Equal(t, numfmt.Decimal, s.Cells[1][0].Format.Kind)
	assert.InDelta(t, 1234.5, s.Cells[1][0].Value, 1e-9)
}

func TestSpanishConventionKeepsTypedNumbers(t *testing.T) {
	s := build(t, Options{Convention: numfmt.Spanish},
		table.RecordOf("n", 12.345, "m", "12.345"),
		table.RecordOf("n", 1.5),
		table.RecordOf("n", 1234.5),
		table.RecordOf("n", 7),
	)

	assert.Equal(t, numfmt.Decimal, s.Cells[1][0].Format.Kind)
	assert.InDelta(t, 12.345, s.Cells[1][0].Value, 1e-9)
	assert.Equal(t, numfmt.Decimal, s.Cells[2][0].Format.Kind)
	assert.InDelta(t, 1.5, s.Cells[2][0].Value, 1e-9)
	assert.Equal(t, numfmt.Decimal, s.Cells[3][0].Format.Kind)
	assert.InDelta(t, 1234.5, s.Cells[3][0].Value, 1e-9)
	assert.Equal(t, numfmt.Integer, s.Cells[4][0].Format.Kind)
	assert.Equal(t, 7.0, s.Cells[4][0].Value)

	// Text still follows the convention.
	assert.Equal(t, numfmt.Integer, s.Cells[1][1].Format.Kind)
	assert.Equal(t, 12345.0, s.Cells[1][1].Value)
}

func TestStrictMarkup(t *testing.T) {
	wb, err := table.Build(table.FromRecords([]*table.Record{
		table.RecordOf("Status", "@color:red@ broken"),
	}))
	require.NoError(t, err)

	_, err = Build(wb, Options{})
	require.NoError(t, err)

	_, err = Build(wb, Options{StrictMarkup: true})
	var perr *markup.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "A2")
}
