package rpc

// Wire representations of the splitbill entities. Monetary values are
// fixed-point decimal strings ("30.00"); timestamps are Unix seconds.

// User is the account payload returned by the auth procedures.
type User struct {
	Id        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// Member is one participant of a splitbill. UserId is empty while the
// invitee has not registered yet.
type Member struct {
	Id        string `json:"id"`
	Alias     string `json:"alias"`
	Email     string `json:"email,omitempty"`
	UserId    string `json:"user_id,omitempty"`
	Pending   bool   `json:"pending"`
	CreatedAt int64  `json:"created_at"`
}

// NewMember describes a member to add: an alias plus an optional invitation
// email.
type NewMember struct {
	Alias string `json:"alias"`
	Email string `json:"email,omitempty"`
}

// Splitbill is the bill header with its member list.
type Splitbill struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Currency  string    `json:"currency"`
	OwnerId   string    `json:"owner_id"`
	Status    string    `json:"status"`
	CreatedAt int64     `json:"created_at"`
	Members   []*Member `json:"members,omitempty"`
}

// Share is one member's slice of an expense. For percentage splits Value is
// the percentage, for custom splits the amount; equal splits only need the
// member ids.
type Share struct {
	MemberId string `json:"member_id"`
	Value    string `json:"value,omitempty"`
}

// Assignment is one member's computed share of an expense.
type Assignment struct {
	MemberId    string `json:"member_id"`
	ShareAmount string `json:"share_amount"`
}

// Expense is a recorded cost with its owed-share breakdown.
type Expense struct {
	Id          string        `json:"id"`
	SplitbillId string        `json:"splitbill_id"`
	Title       string        `json:"title"`
	Amount      string        `json:"amount"`
	SplitType   string        `json:"split_type"`
	PaidById    string        `json:"paid_by_id"`
	CreatedAt   int64         `json:"created_at"`
	Assignments []*Assignment `json:"assignments"`
}

// Transfer is money handed directly between two members.
type Transfer struct {
	Id          string `json:"id"`
	SplitbillId string `json:"splitbill_id"`
	Title       string `json:"title,omitempty"`
	Amount      string `json:"amount"`
	GivenById   string `json:"given_by_id"`
	GivenToId   string `json:"given_to_id"`
	CreatedAt   int64  `json:"created_at"`
}

// Balance is a netted debt edge: FromMemberId owes ToMemberId Amount.
// Settled rows stay visible with amount 0.00.
type Balance struct {
	Id           string `json:"id"`
	FromMemberId string `json:"from_member_id"`
	ToMemberId   string `json:"to_member_id"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Comment is a note left on a splitbill.
type Comment struct {
	Id             string `json:"id"`
	AuthorMemberId string `json:"author_member_id"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"created_at"`
}

// SplitbillView is the full read model of one bill: everything a client
// needs to render it in a single round trip.
type SplitbillView struct {
	Splitbill *Splitbill  `json:"splitbill"`
	Expenses  []*Expense  `json:"expenses"`
	Transfers []*Transfer `json:"transfers"`
	Balances  []*Balance  `json:"balances"`
	Comments  []*Comment  `json:"comments"`
}
