// Package numfmt decides which numeric bucket a cell's text belongs to and
// computes the value to store for it.
//
// Classification is an ordered list of matchers; the first one that accepts
// the text wins and anything no matcher accepts stays plain text.
package numfmt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is a classification bucket.
type Kind int

const (
	None Kind = iota
	Integer
	Decimal
	PercentageFromFraction
	PercentageFromWhole
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case PercentageFromFraction:
		return "percentage"
	case PercentageFromWhole:
		return "percentage-int"
	default:
		return "none"
	}
}

// Display patterns, together with the built-in spreadsheet number format ids
// that render them.
const (
	PatternInteger        = "#,##0"
	PatternDecimal        = "#,##0.00"
	PatternPercent        = "0.00%"
	PatternPercentInteger = "0%"
)

var builtinIDs = map[string]int{
	PatternInteger:        3,
	PatternDecimal:        4,
	PatternPercentInteger: 9,
	PatternPercent:        10,
}

// Format is the outcome of classifying one cell.
type Format struct {
	Kind    Kind
	Value   float64
	Pattern string
}

// IsNumber reports whether the text was classified as a number.
func (f Format) IsNumber() bool { return f.Kind != None }

// BuiltinID returns the built-in number format id for the pattern, or 0.
func (f Format) BuiltinID() int { return builtinIDs[f.Pattern] }

// Convention fixes the thousands and decimal separators of the deployment.
type Convention struct {
	Name      string
	Thousands byte
	Decimal   byte
}

var (
	// English groups with "," and uses "." for decimals: 1,234.56.
	English = Convention{Name: "en", Thousands: ',', Decimal: '.'}
	// Spanish groups with "." and uses "," for decimals: 1.234,56.
	Spanish = Convention{Name: "es", Thousands: '.', Decimal: ','}
)

// ConventionFor returns the convention named by a locale string.
func ConventionFor(locale string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "", "en", "en-us", "en-gb":
		return English, nil
	case "es", "es-es", "es-ar", "es-mx":
		return Spanish, nil
	default:
		return Convention{}, fmt.Errorf("unsupported number locale %q — supported: en, es", locale)
	}
}

// Classifier classifies text under a fixed separator convention.
type Classifier struct {
	conv     Convention
	integer  *regexp.Regexp
	real     *regexp.Regexp
	matchers []matcher
}

type matcher func(c *Classifier, text string) (Format, bool)

// New returns a classifier for the given convention.
func New(conv Convention) *Classifier {
	t := regexp.QuoteMeta(string(conv.Thousands))
	d := regexp.QuoteMeta(string(conv.Decimal))
	digits := `(?:\d{1,3}(?:` + t + `\d{3})+|\d+)`

	c := &Classifier{
		conv:    conv,
		integer: regexp.MustCompile(`^[+-]?` + digits + `$`),
		real:    regexp.MustCompile(`^[+-]?(?:` + digits + `)?` + d + `\d+$`),
	}
	c.matchers = []matcher{matchPercentage, matchInteger, matchDecimal}
	return c
}

var defaultClassifier = New(English)

// Classify classifies text with the English convention.
func Classify(text string) Format {
	return defaultClassifier.Classify(text)
}

// Classify returns the format for text. It never fails: text no matcher
// accepts is classified as None.
func (c *Classifier) Classify(text string) Format {
	text = strings.TrimSpace(text)
	if text == "" {
		return Format{}
	}
	for _, m := range c.matchers {
		if f, ok := m(c, text); ok {
			return f
		}
	}
	return Format{}
}

// FromNumber formats a value that was already numeric in the input. No
// separator convention applies: integral values are Integer, the rest Decimal.
func FromNumber(v float64) Format {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Format{}
	}
	if v == math.Trunc(v) {
		return Format{Kind: Integer, Value: v, Pattern: PatternInteger}
	}
	return Format{Kind: Decimal, Value: v, Pattern: PatternDecimal}
}

func matchPercentage(c *Classifier, text string) (Format, bool) {
	if !strings.HasSuffix(text, "%") {
		return Format{}, false
	}
	numeral := strings.TrimSpace(strings.TrimSuffix(text, "%"))

	if strings.ContainsAny(numeral, ".,") {
		v, ok := c.parseReal(numeral)
		if !ok {
			v, ok = parseAnyDecimal(numeral)
		}
		if !ok {
			return Format{}, false
		}
		return Format{Kind: PercentageFromFraction, Value: v / 100, Pattern: PatternPercent}, true
	}

	n, ok := c.parseInt(numeral)
	if !ok {
		return Format{}, false
	}
	return Format{Kind: PercentageFromWhole, Value: float64(n) / 100, Pattern: PatternPercentInteger}, true
}

func matchInteger(c *Classifier, text string) (Format, bool) {
	n, ok := c.parseInt(text)
	if !ok {
		return Format{}, false
	}
	return Format{Kind: Integer, Value: float64(n), Pattern: PatternInteger}, true
}

func matchDecimal(c *Classifier, text string) (Format, bool) {
	if strings.IndexByte(text, c.conv.Decimal) < 0 {
		return Format{}, false
	}
	v, ok := c.parseReal(text)
	if !ok {
		return Format{}, false
	}
	return Format{Kind: Decimal, Value: v, Pattern: PatternDecimal}, true
}

func (c *Classifier) parseInt(s string) (int64, bool) {
	if !c.integer.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s, string(c.conv.Thousands), ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// plainDecimal is an ungrouped number with either "." or "," as the decimal
// mark. Percentages accept it under every convention.
var plainDecimal = regexp.MustCompile(`^[+-]?\d+[.,]\d+$`)

func parseAnyDecimal(s string) (float64, bool) {
	if !plainDecimal.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseReal accepts integers as well as numbers with a decimal part.
func (c *Classifier) parseReal(s string) (float64, bool) {
	if !c.real.MatchString(s) && !c.integer.MatchString(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, string(c.conv.Thousands), "")
	s = strings.Replace(s, string(c.conv.Decimal), ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
