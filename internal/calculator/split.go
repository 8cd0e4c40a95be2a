// Package calculator implements the splitbill engine: turning one expense
// into per-member shares, and netting a bill's full expense and transfer
// history into the minimal set of directed debts. Everything here is a pure
// function over value snapshots; loading history and persisting results is
// the caller's job.
package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"splitbill/internal/models"
	"splitbill/internal/money"
)

var (
	// ErrValidation reports malformed split input: no members, percentages
	// that do not total 100, custom shares that do not sum to the expense
	// amount, and similar caller mistakes. Nothing is mutated when it is
	// returned.
	ErrValidation = errors.New("invalid split input")

	// ErrArithmeticInvariant reports rounding drift: computed shares that do
	// not sum back to the expense amount. It indicates a bug in the engine,
	// never bad input.
	ErrArithmeticInvariant = errors.New("share sum does not match expense amount")
)

var hundred = decimal.NewFromInt(100)

// Share is one member's requested part of an expense. Value carries the
// percentage for percentage splits and the fixed amount for custom splits;
// equal splits use only MemberID.
type Share struct {
	MemberID string
	Value    decimal.Decimal
}

// SplitExpense converts an expense amount plus a split policy into one
// assignment per member. The shares always sum exactly to the amount:
//   - equal: amount/N rounded to 2 fraction digits, the final member absorbs
//     the rounding remainder;
//   - percentage: percentages must total exactly 100; each share is
//     amount × pct / 100 rounded, and the largest share (first on ties)
//     absorbs the remainder;
//   - custom: the given amounts must already sum to the expense amount, no
//     correction is applied.
func SplitExpense(amount decimal.Decimal, splitType models.SplitType, shares []Share) ([]models.Assignment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, amount)
	}
	if !money.IsQuantized(amount) {
		return nil, fmt.Errorf("%w: amount %s has more than %d fraction digits", ErrValidation, amount, money.Scale)
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: expense needs at least one member", ErrValidation)
	}
	seen := make(map[string]struct{}, len(shares))
	for _, s := range shares {
		if s.MemberID == "" {
			return nil, fmt.Errorf("%w: share without a member id", ErrValidation)
		}
		if _, dup := seen[s.MemberID]; dup {
			return nil, fmt.Errorf("%w: member %s listed twice", ErrValidation, s.MemberID)
		}
		seen[s.MemberID] = struct{}{}
	}

	var (
		amounts []decimal.Decimal
		err     error
	)
	switch splitType {
	case models.SplitEqual:
		amounts, err = money.SplitEven(amount, len(shares))
	case models.SplitPercentage:
		amounts, err = splitByPercentage(amount, shares)
	case models.SplitCustom:
		amounts, err = splitByAmount(amount, shares)
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrValidation, splitType)
	}
	if err != nil {
		return nil, err
	}

	assignments := make([]models.Assignment, len(shares))
	sum := decimal.Zero
	for i, s := range shares {
		assignments[i] = models.Assignment{MemberID: s.MemberID, ShareAmount: amounts[i]}
		sum = sum.Add(amounts[i])
	}
	if !sum.Equal(amount) {
		return nil, fmt.Errorf("%w: shares total %s for amount %s", ErrArithmeticInvariant, money.String(sum), money.String(amount))
	}
	return assignments, nil
}

func splitByPercentage(amount decimal.Decimal, shares []Share) ([]decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range shares {
		if s.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative percentage for member %s", ErrValidation, s.MemberID)
		}
		total = total.Add(s.Value)
	}
	if !total.Equal(hundred) {
		return nil, fmt.Errorf("%w: percentages must total 100, got %s", ErrValidation, total)
	}

	amounts := make([]decimal.Decimal, len(shares))
	sum := decimal.Zero
	largest := 0
	for i, s := range shares {
		amounts[i] = money.ApplyPercent(amount, s.Value)
		sum = sum.Add(amounts[i])
		if amounts[i].GreaterThan(amounts[largest]) {
			largest = i
		}
	}
	if rest := amount.Sub(sum); !rest.IsZero() {
		amounts[largest] = amounts[largest].Add(rest)
		if amounts[largest].IsNegative() {
			return nil, fmt.Errorf("%w: amount %s is too small to distribute by these percentages", ErrValidation, money.String(amount))
		}
	}
	return amounts, nil
}

func splitByAmount(amount decimal.Decimal, shares []Share) ([]decimal.Decimal, error) {
	amounts := make([]decimal.Decimal, len(shares))
	sum := decimal.Zero
	for i, s := range shares {
		if s.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative share for member %s", ErrValidation, s.MemberID)
		}
		if !money.IsQuantized(s.Value) {
			return nil, fmt.Errorf("%w: share %s for member %s has more than %d fraction digits", ErrValidation, s.Value, s.MemberID, money.Scale)
		}
		amounts[i] = s.Value
		sum = sum.Add(s.Value)
	}
	if !sum.Equal(amount) {
		return nil, fmt.Errorf("%w: shares total %s, expense amount is %s", ErrValidation, money.String(sum), money.String(amount))
	}
	return amounts, nil
}
