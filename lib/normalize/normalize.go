// Package normalize converts the display strings found on appraisal
// district pages (currency, percentages, yes/no flags, word-form story
// counts) into typed values. Malformed input never produces an error,
// it normalizes to the absent value.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"dcad-backend/lib/textutil"
)

// sentinel tokens the site renders for "no value"
var absentTokens = map[string]bool{
	"":     true,
	"n/a":  true,
	"na":   true,
	"-":    true,
	"none": true,
}

var numberRegex = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ToNumber parses a display number: optional "$", thousands separators,
// "%" suffix and parenthesized negatives are all tolerated. Returns
// (zero, false) for absent or malformed input. Currency amounts keep
// exact decimal precision.
func ToNumber(s string) (decimal.Decimal, bool) {
	s = textutil.Clean(s)
	if absentTokens[strings.ToLower(s)] {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	if absentTokens[strings.ToLower(s)] {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ToInteger is ToNumber rounded to whole units, for counts and years.
func ToInteger(s string) (int64, bool) {
	d, ok := ToNumber(s)
	if !ok {
		return 0, false
	}
	return d.Round(0).IntPart(), true
}

// ToFloat is ToNumber as a float64, for fields where binary floats are
// acceptable (areas, story counts). Monetary fields should stay decimal.
func ToFloat(s string) (float64, bool) {
	d, ok := ToNumber(s)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// PercentToNumber strips a "%" suffix and parses the face value:
// "25%" becomes 25, not 0.25.
func PercentToNumber(s string) (decimal.Decimal, bool) {
	return ToNumber(strings.ReplaceAll(s, "%", ""))
}

// ToSqft parses an area string like "2,115 sqft" or "1800 SF".
func ToSqft(s string) (float64, bool) {
	s = strings.ToLower(textutil.Clean(s))
	s = strings.ReplaceAll(s, "sqft", "")
	s = strings.ReplaceAll(s, "sq ft", "")
	s = strings.ReplaceAll(s, "sf", "")
	return ToFloat(s)
}

// TriState is the three-valued result of a yes/no-ish field: the site
// distinguishes an explicit "NONE" from the field simply being absent.
type TriState string

const (
	Yes     TriState = "Y"
	No      TriState = "NONE"
	Unknown TriState = "N/A"
)

var yesTokens = map[string]bool{
	"Y": true, "YES": true, "TRUE": true, "1": true,
}

var noTokens = map[string]bool{
	"N": true, "NO": true, "FALSE": true, "NONE": true, "UNASSIGNED": true, "": true,
}

// ToTriState maps yes/no display tokens onto a TriState. Unrecognized
// tokens pass through uppercased: some fields that look boolean on the
// page (fence type, exterior material) actually carry free text, and
// coercing them would lose data.
func ToTriState(s string) TriState {
	val := strings.ToUpper(textutil.Clean(s))
	if val == "N/A" {
		return Unknown
	}
	if noTokens[val] {
		return No
	}
	if yesTokens[val] {
		return Yes
	}
	return TriState(val)
}

var storyWords = []struct {
	word  string
	value float64
}{
	{"ONE", 1}, {"TWO", 2}, {"THREE", 3}, {"FOUR", 4}, {"FIVE", 5}, {"SIX", 6},
}

// StoriesToNumber parses a story count that may be numeric ("1.5") or
// word-form ("TWO STORY", "ONE AND ONE HALF").
func StoriesToNumber(s string) (float64, bool) {
	s = textutil.Clean(s)
	if s == "" {
		return 0, false
	}
	if m := numberRegex.FindString(s); m != "" {
		return ToFloat(m)
	}
	up := strings.ToUpper(s)
	for _, w := range storyWords {
		if strings.Contains(up, w.word) {
			if strings.Contains(up, "HALF") {
				return w.value + 0.5, true
			}
			return w.value, true
		}
	}
	return 0, false
}
