// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Digits strips everything except digits from the input.
func Digits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDigits normalizes a phone number to the digits-only form used as
// a contact lookup key, with the US country code prefixed ("15125550100").
// Falls back to a plain digit strip when the number does not parse.
func NormalizeDigits(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return strings.TrimPrefix(phonenumbers.Format(number, phonenumbers.E164), "+")
	}

	digits := Digits(trimmed)
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}

// ValidateTransferNumber returns the digits-only transfer number when it has
// at least 10 digits, or "" when the input is unusable as a transfer target.
func ValidateTransferNumber(input string) string {
	digits := Digits(input)
	if len(digits) < 10 {
		return ""
	}
	return digits
}
