package model

import (
	"strings"

	"mpesa-subscription-shop/internal/domain"
)

// Canonical M-Pesa numbers are exactly 12 digits: country code 254, then 7,
// then 8 more digits.
const (
	msisdnCountryCode = "254"
	msisdnLength      = 12
)

// NormalizeMSISDN rewrites a user-entered phone number into canonical
// 2547XXXXXXXX form. Accepted inputs: the canonical form itself, a leading
// "+", the local trunk form 07XXXXXXXX, and the bare 7XXXXXXXX form.
// Anything else is rejected before the number can reach the gateway.
func NormalizeMSISDN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		} else if r != '+' && r != ' ' && r != '-' {
			return "", domain.ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = msisdnCountryCode + digits[1:]
	case strings.HasPrefix(digits, "7") && len(digits) == 9:
		digits = msisdnCountryCode + digits
	}

	if len(digits) != msisdnLength || !strings.HasPrefix(digits, msisdnCountryCode+"7") {
		return "", domain.ErrInvalidPhone
	}
	return digits, nil
}
