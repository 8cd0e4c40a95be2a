// Package storage defines the persistence contract for the splitbill
// services. The engine reads consistent snapshots and writes replacement
// balance sets through this interface; swapping the backing database must
// not touch the service layer.
package storage

import (
	"context"
	"errors"

	"splitbill/internal/models"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// match it with errors.Is and map it to a not-found response.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary for all splitbill entities.
type Store interface {
	// CreateUser persists a new user. Fails if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByActivationToken retrieves a pending user by activation token.
	GetUserByActivationToken(ctx context.Context, token string) (*models.User, error)

	// ActivateUser marks the user active and clears the activation token.
	ActivateUser(ctx context.Context, id string) error

	// CreatePasswordReset persists a password reset token.
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error

	// GetPasswordReset retrieves a password reset by token.
	GetPasswordReset(ctx context.Context, token string) (*models.PasswordReset, error)

	// ResetPassword sets a new password hash and burns the user's
	// outstanding reset tokens in one transaction.
	ResetPassword(ctx context.Context, userID, passwordHash string) error

	// CreateSplitbill persists a splitbill together with its initial members.
	CreateSplitbill(ctx context.Context, bill *models.Splitbill) error

	// GetSplitbill retrieves a splitbill with its members.
	GetSplitbill(ctx context.Context, id string) (*models.Splitbill, error)

	// ListSplitbillsByUser lists every splitbill the user is a member of,
	// newest first.
	ListSplitbillsByUser(ctx context.Context, userID string) ([]*models.Splitbill, error)

	// UpdateSplitbill rewrites title, currency and status.
	UpdateSplitbill(ctx context.Context, bill *models.Splitbill) error

	// AddMember adds one member row to a splitbill.
	AddMember(ctx context.Context, member *models.Member) error

	// RemoveMember deletes a member from a splitbill.
	RemoveMember(ctx context.Context, splitbillID, memberID string) error

	// ClaimPendingMembers links member rows invited under the given email to
	// the user and returns how many rows were claimed.
	ClaimPendingMembers(ctx context.Context, email, userID string) (int, error)

	// CreateExpense persists an expense with its assignments in one
	// transaction.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its assignments.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ListExpenses lists a splitbill's expenses with assignments, oldest
	// first.
	ListExpenses(ctx context.Context, splitbillID string) ([]*models.Expense, error)

	// UpdateExpense rewrites an expense and replaces its assignment set in
	// one transaction.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense and its assignments.
	DeleteExpense(ctx context.Context, id string) error

	// CreateTransfer persists a transfer.
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error

	// GetTransfer retrieves a transfer by id.
	GetTransfer(ctx context.Context, id string) (*models.Transfer, error)

	// ListTransfers lists a splitbill's transfers, oldest first.
	ListTransfers(ctx context.Context, splitbillID string) ([]*models.Transfer, error)

	// UpdateTransfer rewrites a transfer.
	UpdateTransfer(ctx context.Context, transfer *models.Transfer) error

	// DeleteTransfer removes a transfer.
	DeleteTransfer(ctx context.Context, id string) error

	// ListBalances lists a splitbill's balance rows, active first.
	ListBalances(ctx context.Context, splitbillID string) ([]*models.Balance, error)

	// ReplaceBalances applies one recompute's write set atomically: updated
	// rows, settled rows and fresh inserts all commit or none do.
	ReplaceBalances(ctx context.Context, splitbillID string, update, settle, insert []models.Balance) error

	// CreateComment persists a comment.
	CreateComment(ctx context.Context, comment *models.Comment) error

	// ListComments lists a splitbill's comments, oldest first.
	ListComments(ctx context.Context, splitbillID string) ([]*models.Comment, error)

	// CreateGuestLink persists a guest access link.
	CreateGuestLink(ctx context.Context, link *models.GuestLink) error

	// GetGuestLink retrieves a guest link by token.
	GetGuestLink(ctx context.Context, token string) (*models.GuestLink, error)

	// Close releases any resources held by the store.
	Close() error
}
