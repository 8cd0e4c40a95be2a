package models

import "github.com/shopspring/decimal"

// Balance represents a derived net debt: FromMember owes ToMember Amount.
//
// Invariants maintained by the balance netter:
//   - Amount is strictly positive while Status is active.
//   - At most one active balance exists per pair of members, in one
//     direction only; mutual debts are always netted into a single edge.
//   - The active set reflects exactly the net effect of the splitbill's
//     expenses and transfers as of the last recomputation.
//
// A balance whose net value reaches zero is kept with Amount 0.00 and
// Status settled. Settled rows are terminal: new debt between the same pair
// creates a fresh active row rather than reviving the old one.
type Balance struct {
	// ID is the unique identifier for the balance (UUID format).
	ID string

	// SplitbillID is the splitbill this balance belongs to.
	SplitbillID string

	// FromMemberID is the member who owes.
	FromMemberID string

	// ToMemberID is the member who is owed.
	ToMemberID string

	// Amount is the net debt at two fraction digits.
	Amount decimal.Decimal

	// Status is active while Amount is nonzero, settled once it reaches zero.
	Status Status

	// CreatedAt is the Unix timestamp when the balance row first appeared.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last recomputation that
	// touched this row.
	UpdatedAt int64
}
