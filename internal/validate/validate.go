// Package validate holds the acceptance predicates for donor names, mobile
// numbers and coordinates.
package validate

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// MinNameLength is the shortest accepted donor name, in characters.
const MinNameLength = 3

// MobileLength is the number of digits in an accepted mobile number.
const MobileLength = 10

// mobileRule is one step of the mobile normalization chain.
type mobileRule struct {
	name  string
	when  func(s string) bool
	apply func(s string) string
}

// mobileRules run in order. Numeric spreadsheet cells come through as
// "9876543210.0". Country and trunk prefixes are not stripped.
var mobileRules = []mobileRule{
	{
		name:  "fold width",
		when:  func(string) bool { return true },
		apply: width.Fold.String,
	},
	{
		name:  "trim",
		when:  func(string) bool { return true },
		apply: strings.TrimSpace,
	},
	{
		name:  "numeric cell artifact",
		when:  func(s string) bool { return strings.HasSuffix(s, ".0") },
		apply: func(s string) string { return strings.TrimSuffix(s, ".0") },
	},
	{
		name:  "digits only",
		when:  func(string) bool { return true },
		apply: digitsOnly,
	},
}

// NormalizeMobile reduces a raw mobile value to its digits.
func NormalizeMobile(raw string) string {
	s := raw
	for _, r := range mobileRules {
		if r.when(s) {
			s = r.apply(s)
		}
	}
	return s
}

// ValidMobile reports whether raw normalizes to a 10-digit number starting with 6-9.
func ValidMobile(raw string) bool {
	m := NormalizeMobile(raw)
	if len(m) != MobileLength {
		return false
	}
	switch m[0] {
	case '6', '7', '8', '9':
		return true
	default:
		return false
	}
}

// ValidName reports whether name has at least MinNameLength characters after trimming.
func ValidName(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) >= MinNameLength
}

// ValidCoordinate reports whether lat/lon lie within geodetic range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
