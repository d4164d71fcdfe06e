// Package money converts between integer minor units and decimal display strings.
// Nothing here goes through floating point.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const MinorDigits = 2

var ErrInvalidAmount = errors.New("invalid money amount")

// Format renders minor units with exactly two decimals, e.g. 3000 -> "30.00".
func Format(minor int64) string {
	return decimal.New(minor, -MinorDigits).StringFixed(MinorDigits)
}

// FormatWithSymbol renders e.g. "Rs. 30.00".
func FormatWithSymbol(symbol string, minor int64) string {
	if symbol == "" {
		return Format(minor)
	}
	return symbol + " " + Format(minor)
}

// Parse reads a non-negative decimal string such as "30", "30.5" or "30.05"
// into minor units. More than two fractional digits is an error, not a rounding.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative %s", ErrInvalidAmount, s)
	}

	minor := d.Shift(MinorDigits)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than %d decimal places in %s", ErrInvalidAmount, MinorDigits, s)
	}
	if minor.GreaterThan(decimal.NewFromInt(maxInt64)) {
		return 0, fmt.Errorf("%w: out of range %s", ErrInvalidAmount, s)
	}

	return minor.IntPart(), nil
}

const maxInt64 = 1<<63 - 1
