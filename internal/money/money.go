// Package money holds the fixed-point rules for every monetary amount in
// splitbill. Amounts are decimal values carried at exactly two fraction
// digits; all rounding goes through Round so the policy lives in one place
// instead of an ambient decimal context.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits every amount is kept at.
const Scale = 2

var (
	// ErrMalformed is returned for input that is not a decimal number or
	// carries more than Scale fraction digits.
	ErrMalformed = errors.New("malformed amount")

	oneHundred = decimal.NewFromInt(100)
)

// Round quantizes d to Scale fraction digits, rounding half away from zero.
// This is the single rounding policy of the whole engine.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// IsQuantized reports whether d is exactly representable at Scale fraction
// digits, i.e. rounding would not change it.
func IsQuantized(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

// Parse converts a decimal string into an amount. Unlike
// decimal.NewFromString it rejects values finer than Scale fraction digits
// rather than silently keeping them.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if !IsQuantized(d) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d fraction digits", ErrMalformed, s, Scale)
	}
	return d, nil
}

// MustParse is Parse for well-known literals; it panics on bad input.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats d with exactly Scale fraction digits ("10.00", "-3.34").
func String(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Sum adds the given amounts. The zero value of the sum is decimal.Zero.
func Sum(ds ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}

// SplitEven divides total into n shares that sum exactly to total. Every
// share is total/n rounded to Scale digits; the final share absorbs the
// rounding remainder. n must be positive.
func SplitEven(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot split between %d members", ErrMalformed, n)
	}
	shares := make([]decimal.Decimal, n)
	even := Round(total.Div(decimal.NewFromInt(int64(n))))
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = even
		running = running.Add(even)
	}
	shares[n-1] = total.Sub(running)
	return shares, nil
}

// ApplyPercent returns total × pct / 100 rounded to Scale digits.
func ApplyPercent(total, pct decimal.Decimal) decimal.Decimal {
	return Round(total.Mul(pct).Div(oneHundred))
}
