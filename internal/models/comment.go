package models

// Comment is a free-text note left by a member on a splitbill.
type Comment struct {
	// ID is the unique identifier for the comment (UUID format).
	ID string

	// SplitbillID is the splitbill this comment belongs to.
	SplitbillID string

	// AuthorMemberID is the member who wrote the comment.
	AuthorMemberID string

	// Text is the comment body (10–500 characters).
	Text string

	// CreatedAt is the Unix timestamp when the comment was posted.
	CreatedAt int64
}

// GuestLink grants time-limited read-only access to a splitbill without an
// account. The token travels in the URL; expired links are rejected.
type GuestLink struct {
	// Token is the url-safe secret identifying the link.
	Token string

	// SplitbillID is the splitbill the link exposes.
	SplitbillID string

	// ExpiresAt is the Unix timestamp after which the link is invalid.
	ExpiresAt int64

	// CreatedAt is the Unix timestamp when the link was issued.
	CreatedAt int64
}
