// Package auth verifies operator credentials.
package auth

import (
	"context"
	"errors"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// Authentication failure modes.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserNotFound       = errors.New("auth: user not found")
)

// Provider authenticates operators. The rest of the panel treats it as a
// black box; only the file-backed implementation ships here.
type Provider interface {
	Authenticate(ctx context.Context, extension, password string) (*models.User, error)
}
