package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	// UserPending marks an account created but not yet activated by email.
	UserPending UserStatus = "pending"
	// UserActive marks an account whose email has been confirmed.
	UserActive UserStatus = "active"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the display name of the user.
	Username string

	// Email is the user's email address (unique). Used for login and for
	// linking invited members to the account on registration.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Status is pending until the activation link is followed.
	Status UserStatus

	// ActivationToken is the one-time token mailed on registration.
	// Empty once the account is active.
	ActivationToken string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser creates a pending user with a fresh ID and activation token.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:              uuid.New().String(),
		Username:        username,
		Email:           email,
		PasswordHash:    passwordHash,
		Status:          UserPending,
		ActivationToken: uuid.New().String(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// PasswordReset is a single-use token allowing a user to set a new password.
type PasswordReset struct {
	// Token is the secret mailed to the user.
	Token string

	// UserID is the account the token resets.
	UserID string

	// ExpiresAt is the Unix timestamp after which the token is invalid.
	ExpiresAt int64

	// CreatedAt is the Unix timestamp when the token was issued.
	CreatedAt int64
}

// NewPasswordReset issues a reset token for the user, valid for ttl.
func NewPasswordReset(userID string, ttl time.Duration) *PasswordReset {
	now := time.Now()
	return &PasswordReset{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl).Unix(),
		CreatedAt: now.Unix(),
	}
}
