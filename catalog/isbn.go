// isbn.go - ISBN normalization and validation.
//
// Users type ISBNs with hyphens or spaces; the catalog stores the
// normalized form: digits only for ISBN-13, nine digits plus a digit or
// uppercase X for ISBN-10.

package catalog

import (
	"regexp"
	"strings"
)

var (
	isbn13Pattern = regexp.MustCompile(`^\d{13}$`)
	isbn10Pattern = regexp.MustCompile(`^\d{9}[\dXx]$`)
)

// NormalizeISBN strips hyphens and whitespace.
func NormalizeISBN(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '-', ' ', '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ValidateISBN13 normalizes and validates a required ISBN-13.
// Returns the normalized value or a message suitable for FieldErrors.
func ValidateISBN13(value string) (string, string) {
	v := NormalizeISBN(value)
	if v == "" {
		return "", "ISBN-13 is required."
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return "", "ISBN-13 must contain only digits."
		}
	}
	if !isbn13Pattern.MatchString(v) {
		return "", "ISBN-13 must be exactly 13 digits."
	}
	return v, ""
}

// ValidateISBN10 normalizes and validates an optional ISBN-10.
// An empty value is allowed. A trailing x is stored as uppercase X.
func ValidateISBN10(value string) (string, string) {
	if value == "" {
		return "", ""
	}
	v := NormalizeISBN(value)
	if len(v) != 10 {
		return "", "ISBN-10 must be exactly 10 characters."
	}
	if !isbn10Pattern.MatchString(v) {
		return "", "ISBN-10 must be 9 digits followed by a digit or X."
	}
	return strings.ToUpper(v), ""
}
