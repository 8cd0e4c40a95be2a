package models

// Status is the shared lifecycle state for splitbills and balances.
type Status string

const (
	// StatusActive marks a splitbill still accepting financial events, or a
	// balance that is still owed.
	StatusActive Status = "active"
	// StatusSettled marks a closed splitbill, or a balance whose net value
	// reached zero. Settled is terminal.
	StatusSettled Status = "settled"
)

// Splitbill represents a group of members sharing expenses.
// All amounts within one splitbill are denominated in its single currency;
// conversion between currencies is out of scope.
type Splitbill struct {
	// ID is the unique identifier for the splitbill (UUID format).
	ID string

	// Title is the human-readable name ("Ski trip", "Flat 4B").
	Title string

	// Currency is a display label such as "EUR"; the engine never converts.
	Currency string

	// OwnerID references the User who created the splitbill.
	OwnerID string

	// Status is active until the bill is explicitly settled; settled bills
	// reject further financial events.
	Status Status

	// CreatedAt is the Unix timestamp when the splitbill was created.
	CreatedAt int64

	// Members is the participant list, populated on full reads.
	Members []Member
}

// Member represents a participant within one splitbill. A member is distinct
// from a user account: invited people exist as members before (or without
// ever) registering.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// SplitbillID is the splitbill this member belongs to.
	SplitbillID string

	// Alias is the display name within the splitbill, unique per bill.
	Alias string

	// Email is the invitation address, if one was given.
	Email string

	// UserID links the member to a registered account. Empty while the
	// invitee has not registered; filled in when a user signs up with the
	// member's email.
	UserID string

	// InvitedBy is the user ID of whoever added this member.
	InvitedBy string

	// CreatedAt is the Unix timestamp when the member was added.
	CreatedAt int64
}

// Pending reports whether the member is not yet linked to a user account.
func (m Member) Pending() bool {
	return m.UserID == ""
}
