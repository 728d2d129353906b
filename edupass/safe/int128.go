package safe

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotInteger is returned when a value carries a fractional part.
var ErrNotInteger = errors.New("value is not an integer")

// ErrInt128Range is returned when a value falls outside the signed
// 128-bit integer range.
var ErrInt128Range = errors.New("value outside signed 128-bit integer range")

// MaxInt128 is the largest representable ledger amount (2^127 - 1).
var MaxInt128 = decimal.RequireFromString("170141183460469231731687303715884105727")

// MinInt128 is the smallest representable ledger amount (-2^127).
var MinInt128 = decimal.RequireFromString("-170141183460469231731687303715884105728")

// CheckInt128 verifies that d is a whole number within the signed 128-bit
// integer range. It returns ErrNotInteger or ErrInt128Range on violation.
//
// Example:
//
//	if err := safe.CheckInt128(amount); err != nil {
//	    return fmt.Errorf("validate amount: %w", err)
//	}
func CheckInt128(d decimal.Decimal) error {
	if !d.IsInteger() {
		return ErrNotInteger
	}

	if d.Cmp(MinInt128) < 0 || d.Cmp(MaxInt128) > 0 {
		return ErrInt128Range
	}

	return nil
}

// AddInt128 returns a + b, or ErrInt128Range when the sum leaves the
// signed 128-bit integer range. Both operands are assumed to already
// satisfy CheckInt128.
//
// Example:
//
//	balance, err := safe.AddInt128(balance, amount)
//	if err != nil {
//	    return fmt.Errorf("credit balance: %w", err)
//	}
func AddInt128(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)

	if sum.Cmp(MinInt128) < 0 || sum.Cmp(MaxInt128) > 0 {
		return decimal.Zero, ErrInt128Range
	}

	return sum, nil
}

// SubInt128 returns a - b, or ErrInt128Range when the difference leaves
// the signed 128-bit integer range. Both operands are assumed to already
// satisfy CheckInt128.
func SubInt128(a, b decimal.Decimal) (decimal.Decimal, error) {
	diff := a.Sub(b)

	if diff.Cmp(MinInt128) < 0 || diff.Cmp(MaxInt128) > 0 {
		return decimal.Zero, ErrInt128Range
	}

	return diff, nil
}
