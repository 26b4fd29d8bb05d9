package oauthmodel

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// PasswordGrant exchanges a username and password for tokens.
	// Used in: Login from a first-party client
	// Token request includes: username, password, client_id
	// Returns: access_token, refresh_token, expires_in
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	// Used in: Token refresh flow (get new access token without re-authenticating user)
	// Token request includes: refresh_token, client_id
	// Returns: new access_token and expires_in; refresh_token only if rotated
	RefreshTokenGrant GrantType = "refresh_token"
)

// BearerTokenType is the only token type issued and accepted.
const BearerTokenType = "bearer"

func (g GrantType) Valid() bool {
	switch g {
	case PasswordGrant, RefreshTokenGrant:
		return true
	}
	return false
}
