package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// removeInvisibleChars strips zero-width characters that paste operations
// tend to smuggle in (ZWSP, ZWNJ, ZWJ, BOM).
func removeInvisibleChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			return -1
		}
		return r
	}, s)
}

// NameKey builds the identity key for a member name: invisible characters
// removed, NFC-normalized, trimmed, and all whitespace dropped. Two names
// that differ only in spacing or invisible characters produce the same key.
func NameKey(raw string) string {
	s := norm.NFC.String(removeInvisibleChars(raw))
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeName builds the display form of a name: same cleanup as NameKey
// but interior whitespace collapses to a single space instead of vanishing.
func NormalizeName(raw string) string {
	s := norm.NFC.String(removeInvisibleChars(raw))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSpaces trims and collapses runs of whitespace to single spaces.
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePostal uppercases a postal code and removes all spaces.
func NormalizePostal(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "")
}

// Truncate trims s and cuts it to at most max runes. Over-length source data
// is truncated, not rejected.
func Truncate(s string, max int) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}
	runes := []rune(v)
	if len(runes) <= max {
		return v
	}
	return string(runes[:max])
}

// FormatEnglishName joins official first/last names with a single space,
// returning "" when both are blank.
func FormatEnglishName(first, last string) string {
	f := strings.TrimSpace(first)
	l := strings.TrimSpace(last)
	switch {
	case f != "" && l != "":
		return f + " " + l
	case f != "":
		return f
	default:
		return l
	}
}
