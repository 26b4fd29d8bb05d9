package token

import (
	"context"

	"github.com/jrsteele09/go-pokedex/oauthmodel"
)

// Endpoint is the token endpoint the Manager talks to.
// Login fails with errs.ErrInvalidCredentials when the credentials are rejected,
// Refresh fails with errs.ErrInvalidRefreshToken (or ErrRefreshTokenExpired) when the
// refresh token is no longer accepted. Any other error is a transport failure.
type Endpoint interface {
	Login(ctx context.Context, username, password string) (*oauthmodel.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error)
}
