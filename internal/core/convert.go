package core

// convert.go normalizes raw spreadsheet cells into the values the catalog stores.
//
// These functions handle the messy reality of hand-edited spreadsheets:
//   - Stray whitespace and non-breaking spaces around values
//   - Decimal commas in prices ("10,50")
//   - Punctuation pasted into identifiers ("ABC 1/2")

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	identifierInvalidChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	priceInvalidChars      = regexp.MustCompile(`[^0-9.+-]`)
	priceNoDigits          = regexp.MustCompile(`^[^0-9.,]+$`)
	numericRegex           = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// CleanCell trims leading and trailing whitespace, non-breaking spaces
// included. The interior of the value is kept as typed.
func CleanCell(s string) string {
	return strings.TrimSpace(s)
}

// SanitizeIdentifier trims the value and drops every character outside
// [A-Za-z0-9._-]. It is idempotent.
func SanitizeIdentifier(raw string) string {
	return identifierInvalidChars.ReplaceAllString(strings.TrimSpace(raw), "")
}

// NormalizePrice converts a user-entered price into a canonical decimal
// string with two places ("10,50" -> "10.50", "7" -> "7.00").
// ok is false when the value is blank, not numeric, or negative.
func NormalizePrice(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || priceNoDigits.MatchString(s) {
		return "", false
	}

	s = strings.ReplaceAll(s, ",", ".")
	s = priceInvalidChars.ReplaceAllString(s, "")

	// Keep the first decimal point; later ones are digit-group noise.
	if first := strings.IndexByte(s, '.'); first >= 0 {
		s = s[:first+1] + strings.ReplaceAll(s[first+1:], ".", "")
	}

	if !numericRegex.MatchString(s) {
		return "", false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return "", false
	}
	if v == 0 {
		v = 0 // drop the sign of "-0"
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}

// isEmptyRow reports whether every value in the row is blank.
func isEmptyRow(values map[string]string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
