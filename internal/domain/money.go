package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount reports a monetary value that cannot be used in totals.
var ErrInvalidAmount = errors.New("domain: invalid amount")

// maxAmountDigits bounds the integer part of any monetary value, matching
// the 10-digit columns the totals are stored in.
const maxAmountDigits = 8

// ParseAmount converts a client-submitted price string into an exact
// decimal. Values must be positive, carry at most two fractional digits,
// and stay within storage bounds. Binary floating point is never involved.
func ParseAmount(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, trimmed)
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("%w: %q has more than two fractional digits", ErrInvalidAmount, trimmed)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, trimmed)
	}
	if len(amount.Truncate(0).String()) > maxAmountDigits {
		return decimal.Zero, fmt.Errorf("%w: %q exceeds the supported range", ErrInvalidAmount, trimmed)
	}
	return amount, nil
}

// FormatAmount renders an amount with exactly two fractional digits, the
// wire format used for all monetary fields.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// MinorUnits converts an amount into the smallest currency unit (paise for
// INR) as required by gateway APIs.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
