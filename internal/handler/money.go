package handler

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// API money fields are decimal KES amounts ("1299.50"); storage and all
// arithmetic use int64 minor units. Conversion happens only at this boundary.

func toMinorUnits(d decimal.Decimal) (int64, bool) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, false
	}
	return cents.IntPart(), true
}

func toMajorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}
