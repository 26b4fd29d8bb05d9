package oauthmodel_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestTokenRequestFromForm(t *testing.T) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", "ash")
	form.Set("password", "pikachu123")
	form.Set("client_id", "pokedex-cli")

	req := oauthmodel.TokenRequestFromForm(form)
	require.Equal(t, oauthmodel.PasswordGrant, req.GrantType)
	require.Equal(t, "ash", req.Username)
	require.Equal(t, "pokedex-cli", req.ClientID)
	require.NoError(t, req.Validate())
}

func TestTokenRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  oauthmodel.TokenRequest
		want error
	}{
		{"password ok", oauthmodel.TokenRequest{GrantType: oauthmodel.PasswordGrant, Username: "ash", Password: "pika"}, nil},
		{"blank user", oauthmodel.TokenRequest{GrantType: oauthmodel.PasswordGrant, Username: "  ", Password: "pika"}, oauthmodel.ErrMissingCredentials},
		{"refresh ok", oauthmodel.TokenRequest{GrantType: oauthmodel.RefreshTokenGrant, RefreshToken: "R1"}, nil},
		{"refresh missing", oauthmodel.TokenRequest{GrantType: oauthmodel.RefreshTokenGrant}, oauthmodel.ErrMissingRefreshToken},
		{"code grant", oauthmodel.TokenRequest{GrantType: "authorization_code"}, oauthmodel.ErrUnsupportedGrantType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
