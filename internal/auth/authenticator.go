package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator turns credentials into users. AuthService only talks to this
// interface, so a second login method can sit next to passwords later.
type Authenticator interface {
	// Register creates an account. The email is the login name and
	// displayName becomes the user's participant name on bills.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning email if credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials Register would not accept.
	ValidateCredential(credential string) error
}

var _ Authenticator = (*PasswordAuthenticator)(nil)
