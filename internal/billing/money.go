package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in currency minor units. All internal arithmetic
// happens in Cents; decimal strings exist only at the API boundary.
type Cents int64

// ParseAmount converts a decimal currency string ("140.40") to minor units.
// More than two fraction digits is rejected rather than rounded.
func ParseAmount(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return Cents(d.Shift(2).IntPart()), nil
}

// ParsePercent converts a decimal percentage string ("8.25") to basis points.
func ParsePercent(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid percent %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("percent %q has more than two decimal places", s)
	}
	return d.Shift(2).IntPart(), nil
}

// ParseHours converts a decimal hours string ("2.5") to hundredths of an hour.
func ParseHours(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid hours %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("hours %q has more than two decimal places", s)
	}
	return d.Shift(2).IntPart(), nil
}

// FormatAmount renders minor units as a two-decimal currency string.
func FormatAmount(c Cents) string {
	return decimal.New(int64(c), -2).StringFixed(2)
}

// FormatPercent renders basis points as a two-decimal percentage string.
func FormatPercent(bp int64) string {
	return decimal.New(bp, -2).StringFixed(2)
}
