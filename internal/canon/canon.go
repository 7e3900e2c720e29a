// Package canon implements the canonicalization rule shared by the
// Pattern Analyzer and the Similarity Index: NFKC-normalize, lowercase,
// collapse internal whitespace, and trim. Two inputs differing only in
// case, surrounding whitespace, or Unicode compatibility forms of the
// same grapheme must canonicalize to the same string.
package canon

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Text applies the canonicalization rule from the data model invariants:
// NFKC normalization, locale-independent lowercasing, and whitespace
// collapse.
func Text(s string) string {
	s = norm.NFKC.String(s)
	s = lower.String(s)
	return collapseWhitespace(s)
}

// collapseWhitespace trims leading/trailing whitespace and replaces
// every interior run of whitespace with a single space.
func collapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// IsNumeric reports whether s, once canonicalized, consists solely of
// digits, decimal points, fraction slashes, hyphens, and spaces — the edge
// case the analyzer discards because a purely numeric fragment is not a
// meaningful pattern.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
		case r == '.' || r == '/' || r == ' ' || r == '-':
		default:
			return false
		}
	}
	return true
}

// IsPunctuationOnly reports whether s contains no letters or digits at
// all. A canonicalized fragment made up solely of punctuation or symbols
// (bullets, dashes, ellipses) carries no pattern-worthy content.
func IsPunctuationOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
