package pix

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a BRL amount the way the cob API expects it ("25.50").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// AmountToCents converts a validated amount string to cents.
func AmountToCents(s string) (int64, error) {
	if err := ValidateAmount(s); err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d.Shift(2).IntPart(), nil
}

// CentsToAmount is the inverse of AmountToCents.
func CentsToAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
