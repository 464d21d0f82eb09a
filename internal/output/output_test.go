package output

import (
	"bytes"
	"testing"
)

func TestJSONKeepsMarkupAndUnicode(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, map[string]string{"Producto": "<b>Ibuprofeno</b> ñ"}); err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"Producto\": \"<b>Ibuprofeno</b> ñ\"\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestTermHeight(t *testing.T) {
	t.Setenv("LINES", "12")
	if h := termHeight(); h != 12 {
		t.Errorf("termHeight = %d, want 12", h)
	}
	t.Setenv("LINES", "bogus")
	if h := termHeight(); h <= 0 {
		t.Errorf("termHeight = %d, want a positive fallback", h)
	}
}

func TestShouldPageNotTerminal(t *testing.T) {
	if ShouldPage("a\nb\n") {
		t.Error("short content should not page")
	}
}
