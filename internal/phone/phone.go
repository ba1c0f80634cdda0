// Package phone canonicalizes dialable numbers into E.164 form.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultCountryCode is prefixed onto bare national numbers.
const DefaultCountryCode = "+91"

// ErrInvalid reports input that cannot become a valid E.164 number.
// This is terminal: callers must abort the job, never retry.
var ErrInvalid = errors.New("invalid phone number")

var (
	tenDigits = regexp.MustCompile(`^\d{10}$`)
	e164      = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
)

// Normalize strips formatting characters from raw, applies the default
// country code to bare 10-digit national numbers, and validates the result
// against E.164 shape. Already-canonical input passes through unchanged.
func Normalize(raw string) (string, error) {
	cleaned := clean(raw)
	if cleaned == "" {
		return "", ErrInvalid
	}

	if tenDigits.MatchString(cleaned) {
		cleaned = DefaultCountryCode + cleaned
	} else if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}

	if !e164.MatchString(cleaned) {
		return "", ErrInvalid
	}
	return cleaned, nil
}

// clean drops everything except digits and a leading plus.
func clean(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
