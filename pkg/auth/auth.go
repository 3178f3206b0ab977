// Package auth verifies user credentials for the session layer. The prediction
// core never sees credentials.
package auth

import (
	"context"
	"errors"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}
