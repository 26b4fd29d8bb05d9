package oauthmodel

import "errors"

var (
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	ErrMissingCredentials   = errors.New("username and password are required")
	ErrMissingRefreshToken  = errors.New("refresh token is required")
)

// RFC 6749 error codes used by the token endpoint and the protected API
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeServerError          = "server_error"
)
