package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every amount carries.
const MoneyScale = 2

var (
	Zero = decimal.Zero

	// MaxOperationAmount bounds a single deposit, withdrawal or transfer.
	MaxOperationAmount = decimal.NewFromInt(1_000_000)

	// MaxBalance is the largest value a NUMERIC(12,2) column holds.
	MaxBalance = decimal.RequireFromString("9999999999.99")
)

// ValidateAmount reports whether amount is acceptable for a core operation:
// strictly positive, at most MaxOperationAmount and at most two decimal places.
func ValidateAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || amount.GreaterThan(MaxOperationAmount) {
		return false
	}
	return amount.Equal(amount.Truncate(MoneyScale))
}

// DateOf truncates t to its calendar date in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
