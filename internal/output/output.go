// Package output provides formatting utilities for CLI output.
package output

import (
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// JSON encodes v as pretty-printed JSON without HTML escaping, so cell text
// like "<b>" and non-ASCII survive as written.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ShouldPage reports whether content is taller than the terminal. Output
// that is not a terminal is never paged.
func ShouldPage(content string) bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return strings.Count(content, "\n") > termHeight()
}

// Page pipes content through the user's preferred pager (PAGER env, or "less").
func Page(content string) error {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less -R"
	}
	fields := strings.Fields(pager)

	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func termHeight() int {
	if n, err := strconv.Atoi(os.Getenv("LINES")); err == nil && n > 0 {
		return n
	}
	if _, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && h > 0 {
		return h
	}
	return 40
}
