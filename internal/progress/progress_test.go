package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewDisabledInNonTTY(t *testing.T) {
	bar := New("test", 10)
	if bar.Enabled {
		t.Skip("TTY detected, skipping non-TTY test")
	}
}

func TestNewWithEnvDisable(t *testing.T) {
	t.Setenv("TABKIT_NO_PROGRESS", "1")
	bar := New("test", 10)
	if bar.Enabled {
		t.Error("expected bar to be disabled with TABKIT_NO_PROGRESS=1")
	}
}

func TestNewWithJSONDisable(t *testing.T) {
	t.Setenv("TABKIT_JSON", "true")
	bar := New("test", 10)
	if bar.Enabled {
		t.Error("expected bar to be disabled with TABKIT_JSON=true")
	}
}

func TestBarOverIncrement(t *testing.T) {
	bar := &Bar{Total: 3, Width: 40}
	for i := 0; i < 5; i++ {
		bar.Increment("row")
	}
	if bar.Current != 3 {
		t.Errorf("expected current capped at 3, got %d", bar.Current)
	}
	if bar.Pct() != 100 {
		t.Errorf("expected 100%%, got %v", bar.Pct())
	}
}

func TestBarRender(t *testing.T) {
	var buf bytes.Buffer
	bar := &Bar{Total: 4, Width: 8, Label: "enrich", Enabled: true, Out: &buf}
	bar.Increment("Ibuprofeno")
	bar.Increment("Paracetamol")

	out := buf.String()
	if !strings.Contains(out, "enrich [====    ] 2/4  Paracetamol") {
		t.Errorf("unexpected render: %q", out)
	}

	bar.Finish("4 rows")
	if !strings.HasSuffix(buf.String(), "✓ 4 rows\n") {
		t.Errorf("unexpected finish: %q", buf.String())
	}
}

func TestBarUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := &Bar{Label: "rows", Enabled: true, Out: &buf}
	bar.Increment("a")
	bar.Increment("b")
	if bar.Current != 2 {
		t.Errorf("expected current=2, got %d", bar.Current)
	}
	if !strings.Contains(buf.String(), "rows 2  b") {
		t.Errorf("unexpected render: %q", buf.String())
	}
}

func TestDisabledBarWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	bar := &Bar{Total: 2, Width: 10, Out: &buf}
	bar.Increment("x")
	bar.Finish("done")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
