// Package bloodgroup maps free-text blood group spellings to canonical ABO/Rh tokens.
package bloodgroup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/bloodbuddy/donor-cli/internal/model"
)

// unknownPlaceholders are lowercased inputs that mean "not known". They always
// normalize to the sentinel.
var unknownPlaceholders = map[string]bool{
	"na":             true,
	"n/a":            true,
	"n.a":            true,
	"n.a.":           true,
	"nil":            true,
	"null":           true,
	"none":           true,
	"nan":            true,
	"any":            true,
	"other":          true,
	"pending":        true,
	"unknown":        true,
	"not known":      true,
	"not tested":     true,
	"not applicable": true,
	"i don't know":   true,
	"i dont know":    true,
	"i don`t know":   true,
	"don't know":     true,
	"dont know":      true,
}

// noise is removed before substitutions run.
var noise = strings.NewReplacer(
	"'", "", "`", "", "\"", "",
	"(", "", ")", "",
	"[", "", "]", "",
	"{", "", "}", "",
	",", "", "*", "", ".", "", "_", "",
	":", "", ";", "",
	"\t", " ", "\n", " ", "\r", " ",
)

// rule is one step of the substitution chain. apply runs only when when matches.
type rule struct {
	name  string
	when  func(s string) bool
	apply func(s string) string
}

func replace(name, old, repl string) rule {
	return rule{
		name:  name,
		when:  func(s string) bool { return strings.Contains(s, old) },
		apply: func(s string) string { return strings.ReplaceAll(s, old, repl) },
	}
}

func pattern(name string, re *regexp.Regexp, repl string) rule {
	return rule{
		name:  name,
		when:  re.MatchString,
		apply: func(s string) string { return re.ReplaceAllString(s, repl) },
	}
}

// rules run in order over the uppercased, noise-stripped token. New spellings
// are added here rather than as new branches in Normalize.
var rules = []rule{
	replace("unicode minus", "−", "-"),
	replace("en dash", "–", "-"),
	replace("em dash", "—", "-"),
	pattern("positive spelling", regexp.MustCompile(`P[O0]S+I?T+I?V+E?`), "+"),
	pattern("negative spelling", regexp.MustCompile(`N[AE]G+[AE]?T+I?V+E?`), "-"),
	replace("plus", "PLUS", "+"),
	replace("minus", "MINUS", "-"),
	replace("pos abbreviation", "POS", "+"),
	replace("neg abbreviation", "NEG", "-"),
	replace("ve suffix", "VE", ""),
	replace("blood label", "BLOOD", ""),
	replace("group label", "GROUP", ""),
	replace("type label", "TYPE", ""),
	replace("rhesus label", "RH", ""),
	replace("spaces", " ", ""),
	rule{
		name:  "leading zero",
		when:  func(s string) bool { return strings.HasPrefix(s, "0") },
		apply: func(s string) string { return "O" + s[1:] },
	},
}

// prefixes are checked in order; AB must precede A and B.
var prefixes = []struct {
	prefix   string
	pos, neg model.BloodGroup
}{
	{"AB", model.BloodGroupABPos, model.BloodGroupABNeg},
	{"A", model.BloodGroupAPos, model.BloodGroupANeg},
	{"B", model.BloodGroupBPos, model.BloodGroupBNeg},
	{"O", model.BloodGroupOPos, model.BloodGroupONeg},
}

// Normalize maps a raw blood group string to a canonical group. The boolean is
// false when the input cannot be determined; no group is ever guessed.
func Normalize(raw string) (model.BloodGroup, bool) {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if isPlaceholder(s) {
		return "", false
	}

	token := Clean(s)
	if token == "" {
		return "", false
	}

	if g, ok := model.ParseBloodGroup(token); ok {
		return g, true
	}

	for _, p := range prefixes {
		if strings.HasPrefix(token, p.prefix) {
			if strings.Contains(token, "+") {
				return p.pos, true
			}
			return p.neg, true
		}
	}

	return "", false
}

// NormalizePtr is Normalize returning nil for the sentinel.
func NormalizePtr(raw string) *model.BloodGroup {
	g, ok := Normalize(raw)
	if !ok {
		return nil
	}
	return &g
}

// Clean applies noise stripping and the substitution chain without
// classifying the result.
func Clean(s string) string {
	token := strings.TrimSpace(noise.Replace(strings.ToUpper(s)))
	for _, r := range rules {
		if r.when(token) {
			token = r.apply(token)
		}
	}
	return token
}

func isPlaceholder(s string) bool {
	if s == "" {
		return true
	}
	if unknownPlaceholders[strings.ReplaceAll(strings.ToLower(s), "’", "'")] {
		return true
	}
	// Bare punctuation such as "-", "_", "." or "?".
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0
}
