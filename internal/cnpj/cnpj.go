// Package cnpj normalises and validates Brazilian company tax ids.
package cnpj

import (
	"errors"
	"strings"
)

const Length = 14

var (
	ErrLength   = errors.New("cnpj must have 14 digits")
	ErrChecksum = errors.New("cnpj check digits do not match")
)

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Normalize drops everything that is not an ASCII digit.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsValid reports whether digits is a 14 digit CNPJ with correct check digits.
func IsValid(digits string) bool {
	if len(digits) != Length || Normalize(digits) != digits {
		return false
	}
	if allSame(digits) {
		return false
	}
	return checkDigit(digits[:12], firstWeights) == int(digits[12]-'0') &&
		checkDigit(digits[:13], secondWeights) == int(digits[13]-'0')
}

// ForStorage turns raw user input into the value kept in the companies table.
// Empty input gives nil. In strict mode the value must be a valid CNPJ; in
// relaxed mode short values are left padded with zeros and the checksum is
// not enforced.
func ForStorage(raw string, strict bool) (*string, error) {
	digits := Normalize(raw)
	if digits == "" {
		return nil, nil
	}
	if len(digits) != Length {
		if strict || len(digits) > Length {
			return nil, ErrLength
		}
		digits = strings.Repeat("0", Length-len(digits)) + digits
	}
	if strict && !IsValid(digits) {
		return nil, ErrChecksum
	}
	return &digits, nil
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func checkDigit(base string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(base[i]-'0') * w
	}
	if r := sum % 11; r >= 2 {
		return 11 - r
	}
	return 0
}
