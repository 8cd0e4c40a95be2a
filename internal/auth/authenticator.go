package auth

import (
	"context"

	"splitbill/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The abstraction keeps the service layer independent of the auth method
// (password today, passkeys or OAuth later).
type Authenticator interface {
	// Register creates a new pending account for the given identity and
	// credential. The credential format depends on the implementation.
	Register(ctx context.Context, username, email, credential string) (*models.User, error)

	// Authenticate verifies the credentials and returns the user if valid
	// and activated.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the
	// implementation's requirements (length for passwords, format for
	// other methods).
	ValidateCredential(credential string) error

	// HashCredential validates and hashes a credential for storage, used
	// when a credential is replaced outside the Register flow.
	HashCredential(credential string) (string, error)
}
