package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"splitbill/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrNotActivated       = errors.New("account not activated")
)

// UserStorage is the slice of the store the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PasswordAuthenticator implements email/password authentication with
// bcrypt hashing. New accounts start pending until activated.
type PasswordAuthenticator struct {
	storage UserStorage
}

// NewPasswordAuthenticator creates a password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage}
}

// ValidateCredential checks password strength requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// HashCredential validates and bcrypt-hashes a password.
func (a *PasswordAuthenticator) HashCredential(credential string) (string, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a new pending account. The returned user carries the
// activation token the caller is expected to mail out.
func (a *PasswordAuthenticator) Register(ctx context.Context, username, email, credential string) (*models.User, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	if _, err := a.storage.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	}

	hash, err := a.HashCredential(credential)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(username, email, hash)
	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the email/password pair. Accounts that have not
// followed their activation link yet are rejected with ErrNotActivated.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.User, error) {
	user, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		// Do not leak whether the email is registered.
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != models.UserActive {
		return nil, ErrNotActivated
	}

	return user, nil
}
