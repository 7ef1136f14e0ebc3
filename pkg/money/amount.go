package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The wallet service exchanges amounts as plain JSON numbers, so values are
// float64 end to end. Display rounding relies on strconv's round-half-even
// behavior: USD to 2 decimal places, asset quantities to 6.

// ParseAmount parses a user-supplied amount and rejects anything that is not
// a positive finite number.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	if v <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	return v, nil
}

// FormatUSD renders a monetary value with two decimal places and a dollar
// sign, e.g. 1234.5 -> "$1234.50".
func FormatUSD(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatQuantity renders an asset quantity truncated to six decimal places
// with trailing zeros kept, matching the product's display convention.
func FormatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
