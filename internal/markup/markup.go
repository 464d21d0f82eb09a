// Package markup parses the inline styling directives embedded in cell text.
//
// Two directives are recognized:
//
//	@bold@            marks the whole cell bold
//	@color:RRGGBB@    sets the font color (a leading # is accepted and dropped)
//
// Directives are removed from the display text, which is then trimmed.
package markup

import (
	"fmt"
	"regexp"
	"strings"
)

const boldToken = "@bold@"

var colorDirective = regexp.MustCompile(`@color:#?([0-9A-Fa-f]{6}(?:[0-9A-Fa-f]{2})?)@`)

// Style is the font styling derived from a cell's markup.
type Style struct {
	Bold  bool   `json:"bold,omitempty"`
	Color string `json:"color,omitempty"`
}

// IsZero reports whether the style carries no styling.
func (s Style) IsZero() bool {
	return !s.Bold && s.Color == ""
}

// Key returns a stable identifier for the style, suitable for caching.
func (s Style) Key() string {
	if s.Bold {
		return "b:" + s.Color
	}
	return ":" + s.Color
}

// directive matches one kind of markup, strips it from the text and
// applies it to the style.
type directive func(text string, st *Style) string

var directives = []directive{
	func(text string, st *Style) string {
		if !strings.Contains(text, boldToken) {
			return text
		}
		st.Bold = true
		return strings.ReplaceAll(text, boldToken, "")
	},
	func(text string, st *Style) string {
		m := colorDirective.FindStringSubmatch(text)
		if m == nil {
			return text
		}
		st.Color = m[1]
		return colorDirective.ReplaceAllString(text, "")
	},
}

// Parse strips markup from raw and returns the display text and style.
// It never fails; anything that does not match a directive stays literal.
func Parse(raw string) (string, Style) {
	var st Style
	text := raw
	for _, d := range directives {
		text = d(text, &st)
	}
	return strings.TrimSpace(text), st
}

// ParseError reports directive-like text left over after parsing, e.g. an
// unterminated "@color:" token or a color that is not hex.
type ParseError struct {
	Text  string
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed markup %q in %q", e.Token, e.Text)
}

var leftover = regexp.MustCompile(`@(?:bold|color:[^@\s]*)@?`)

// ParseStrict is Parse, but reports a ParseError when the display text still
// contains something that looks like a directive.
func ParseStrict(raw string) (string, Style, error) {
	text, st := Parse(raw)
	if tok := leftover.FindString(text); tok != "" {
		return text, st, &ParseError{Text: raw, Token: tok}
	}
	return text, st, nil
}
