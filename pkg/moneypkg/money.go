// Package moneypkg provides parsing and validation of money amounts.
//
// Amounts travel as decimal strings and are handled as shopspring decimals,
// never as floats.
package moneypkg

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxScale is the maximum number of fractional digits an amount may carry.
const MaxScale = 4

// ParseAmount parses s into a decimal and reports whether it is a valid transfer amount.
func ParseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

// IsPositive returns true if d is greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// FitsScale returns true if d has at most MaxScale fractional digits.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MaxScale))
}

// ValidAmount validates whether the field is a positive decimal string.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, ok := ParseAmount(s)

	return ok && IsPositive(d)
}
