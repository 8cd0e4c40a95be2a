package models

import "github.com/shopspring/decimal"

// SplitType selects how an expense is divided between members.
type SplitType string

const (
	// SplitEqual divides the amount evenly across all members of the bill.
	SplitEqual SplitType = "equal"
	// SplitPercentage divides the amount by caller-supplied percentages
	// that must total exactly 100.
	SplitPercentage SplitType = "percentage"
	// SplitCustom uses caller-supplied share amounts that must total
	// exactly the expense amount.
	SplitCustom SplitType = "custom"
)

// Valid reports whether t is one of the known split types.
func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}

// Expense represents a cost paid by one member on behalf of the group.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// SplitbillID is the splitbill this expense belongs to.
	SplitbillID string

	// Title is the human-readable description ("Groceries", "Fuel").
	Title string

	// Amount is the full expense amount at two fraction digits.
	Amount decimal.Decimal

	// Type selects the split policy used to derive Assignments.
	Type SplitType

	// PaidByID is the member who paid the expense.
	PaidByID string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Assignments is the owed-share breakdown, populated on full reads.
	// The share amounts always sum exactly to Amount.
	Assignments []Assignment
}

// Assignment is one member's owed share of one expense.
type Assignment struct {
	// ID is the unique identifier for the assignment (UUID format).
	ID string

	// ExpenseID is the expense this share belongs to.
	ExpenseID string

	// MemberID is the member owing this share.
	MemberID string

	// ShareAmount is the owed amount at two fraction digits.
	ShareAmount decimal.Decimal
}
