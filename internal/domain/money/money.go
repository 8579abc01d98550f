// Package money holds the fixed-point rules shared by prices and totals.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MaxDigits     = 10
	DecimalPlaces = 2
)

// Check reports why d does not fit a decimal(10,2) column, or "" when it does.
func Check(d decimal.Decimal) string {
	coef := d.Coefficient()
	coef.Abs(coef)
	exp := int(d.Exponent())

	nDigits := len(coef.String())
	if coef.Sign() == 0 {
		nDigits = 1
	}

	var digits, decimals int
	switch {
	case exp >= 0:
		digits = nDigits + exp
		if coef.Sign() == 0 {
			digits = 1
		}
	case -exp > nDigits:
		digits, decimals = -exp, -exp
	default:
		digits, decimals = nDigits, -exp
	}
	whole := digits - decimals

	switch {
	case digits > MaxDigits:
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", MaxDigits)
	case decimals > DecimalPlaces:
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", DecimalPlaces)
	case whole > MaxDigits-DecimalPlaces:
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", MaxDigits-DecimalPlaces)
	}
	return ""
}

// Format renders d with exactly two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(DecimalPlaces)
}
