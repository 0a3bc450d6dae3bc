// Package core holds the budget domain model and the aggregation
// functions over it. Everything here is pure: no I/O, no hidden state.
//
// Amounts are decimal.Decimal throughout. Binary floats are never used
// for money; rounding happens only at display boundaries.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied amount string to an exact
// decimal with cent resolution.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Only strictly positive amounts with at most two decimal places are
// accepted; sub-cent input is rejected, never rounded.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ValidateAmount enforces the monetary invariant on stored records:
// non-negative, at most two decimal places.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders an amount with exactly two decimals, the native
// precision of stored currency.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
