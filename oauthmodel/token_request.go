package oauthmodel

import (
	"net/url"
	"strings"
)

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the form body sent to the /oauth2/token endpoint.
// Supports the password and refresh_token grant types.
type TokenRequest struct {
	// GrantType selects the flow.
	// Required: Yes
	// Example: "password"
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required: No for the development backend
	// Example: "pokedex-cli"
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string

	// Username and Password are the resource owner credentials.
	// Required: Yes (only for password grant)
	Username string
	Password string

	// RefreshToken is used to obtain new access tokens without re-authentication.
	// Required: Yes (only for refresh_token grant)
	// Example: "9f86d081884c7d659a2feaa0c55ad015..."
	RefreshToken string
}

// TokenRequestFromForm reads a token request from parsed form values.
func TokenRequestFromForm(form url.Values) TokenRequest {
	return TokenRequest{
		GrantType:    GrantType(form.Get("grant_type")),
		ClientID:     form.Get("client_id"),
		ClientSecret: form.Get("client_secret"),
		Username:     form.Get("username"),
		Password:     form.Get("password"),
		RefreshToken: form.Get("refresh_token"),
	}
}

// Validate checks that the parameters required by the grant type are present.
func (r TokenRequest) Validate() error {
	switch r.GrantType {
	case PasswordGrant:
		if strings.TrimSpace(r.Username) == "" || r.Password == "" {
			return ErrMissingCredentials
		}
	case RefreshTokenGrant:
		if strings.TrimSpace(r.RefreshToken) == "" {
			return ErrMissingRefreshToken
		}
	default:
		return ErrUnsupportedGrantType
	}
	return nil
}
