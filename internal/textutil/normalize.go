package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize folds case, decomposes compatibility characters and removes
// combining marks, so "Beyoncé" and "BEYONCE" compare equal.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	// Casers carry state, so one is built per call.
	return collapseSpaces(cases.Fold().String(stripped))
}

// Tokens returns the distinct alphanumeric tokens of value after
// normalization, in first-seen order.
func Tokens(value string) []string {
	fields := words(value)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// TokenSimilarity reports |L∩R| / |L| over the token sets of left and right.
// It is asymmetric: left is the expected value, right the observed one.
// Either side empty yields 0.
func TokenSimilarity(left, right string) float64 {
	l := Tokens(left)
	r := Tokens(right)
	if len(l) == 0 || len(r) == 0 {
		return 0
	}
	rset := make(map[string]struct{}, len(r))
	for _, tok := range r {
		rset[tok] = struct{}{}
	}
	shared := 0
	for _, tok := range l {
		if _, ok := rset[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(l))
}

// HasToken reports whether the normalized value contains the token (or
// multi-word phrase) as whole words. Repeated words are kept, so "Up Up and
// Away (Sped Up)" still contains "sped up".
func HasToken(value, token string) bool {
	haystack := " " + strings.Join(words(value), " ") + " "
	needle := " " + strings.Join(words(token), " ") + " "
	if strings.TrimSpace(needle) == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}

// words splits the normalized value into alphanumeric runs, in order and
// with repeats.
func words(value string) []string {
	normalized := Normalize(value)
	if normalized == "" {
		return nil
	}
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func collapseSpaces(value string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " "))
}
