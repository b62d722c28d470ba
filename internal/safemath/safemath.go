// Package safemath provides checked uint64 arithmetic for fund amounts.
// Every operation fails with domain.ErrMathOverflow instead of wrapping,
// truncating, or dividing by zero.
package safemath

import (
	"math"

	"ticket-settlement-lab/internal/domain"
)

// Add returns a+b or ErrMathOverflow.
func Add(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}

// Sub returns a-b or ErrMathOverflow on underflow.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, domain.ErrMathOverflow
	}
	return a - b, nil
}

// Mul returns a*b or ErrMathOverflow.
func Mul(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, domain.ErrMathOverflow
	}
	return a * b, nil
}

// Div returns a/b or ErrMathOverflow when b is zero.
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, domain.ErrMathOverflow
	}
	return a / b, nil
}

// Fee computes floor(amount * bps / 10000). The multiply is checked before the
// divide; with amount near the uint64 limit the intermediate product overflows
// and must be reported, not masked by dividing first.
func Fee(amount uint64, bps uint16) (uint64, error) {
	product, err := Mul(amount, uint64(bps))
	if err != nil {
		return 0, err
	}
	return Div(product, 10_000)
}

// PriceCap computes floor(originalPrice * 110 / 100), the maximum allowed
// resale price. Evaluated at listing creation only.
func PriceCap(originalPrice uint64) (uint64, error) {
	product, err := Mul(originalPrice, domain.ResalePriceCapPct)
	if err != nil {
		return 0, err
	}
	return Div(product, 100)
}
