package models

import "github.com/shopspring/decimal"

// Transfer represents money handed directly from one member to another,
// outside of any expense. Transfers reduce (or reverse) the debt the giver
// carries toward the receiver.
type Transfer struct {
	// ID is the unique identifier for the transfer (UUID format).
	ID string

	// SplitbillID is the splitbill this transfer belongs to.
	SplitbillID string

	// Title is an optional note ("paid back for dinner").
	Title string

	// Amount is the transferred amount at two fraction digits.
	Amount decimal.Decimal

	// GivenByID is the member who handed the money over.
	GivenByID string

	// GivenToID is the member who received it.
	GivenToID string

	// CreatedAt is the Unix timestamp when the transfer was recorded.
	CreatedAt int64
}
