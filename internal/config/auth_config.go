package config

import (
	"fmt"
	"time"
)

type AuthConfig interface {
	GetTokenURL() string
	GetClientID() string
	GetClientSecret() string
	GetUseLocalIssuer() bool
	GetSigningSecret() string
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

// Auth configures where tokens come from. With UseLocalIssuer the stub issuer runs in-process
// and TokenURL is ignored.
type Auth struct {
	TokenURL           string        `yaml:"token_url" env:"TOKEN_URL"`
	ClientID           string        `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret       string        `yaml:"client_secret" env:"CLIENT_SECRET"`
	UseLocalIssuer     bool          `yaml:"use_local_issuer" env:"USE_LOCAL_ISSUER"`
	SigningSecret      string        `yaml:"signing_secret" env:"SIGNING_SECRET"`
	AccessTokenExpiry  time.Duration `yaml:"access_token_expiry" env:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenExpiry time.Duration `yaml:"refresh_token_expiry" env:"REFRESH_TOKEN_EXPIRY"`
}

func defaultAuth() Auth {
	return Auth{
		TokenURL:           "http://localhost:8080/oauth2/token",
		ClientID:           "pokedex-cli",
		UseLocalIssuer:     true,
		SigningSecret:      "pokedex-dev-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

func (a Auth) validate() error {
	if !a.UseLocalIssuer && a.TokenURL == "" {
		return fmt.Errorf("auth token url is required when the local issuer is disabled")
	}
	if a.AccessTokenExpiry <= 0 {
		return fmt.Errorf("access token expiry must be positive, got %s", a.AccessTokenExpiry)
	}
	return nil
}

func (e EnvVars) GetTokenURL() string {
	return e.Auth.TokenURL
}

func (e EnvVars) GetClientID() string {
	return e.Auth.ClientID
}

func (e EnvVars) GetClientSecret() string {
	return e.Auth.ClientSecret
}

func (e EnvVars) GetUseLocalIssuer() bool {
	return e.Auth.UseLocalIssuer
}

func (e EnvVars) GetSigningSecret() string {
	return e.Auth.SigningSecret
}

// GetDefaultAccessTokenExpiry is also the lifetime assumed when a token response omits expires_in
func (e EnvVars) GetDefaultAccessTokenExpiry() time.Duration {
	return e.Auth.AccessTokenExpiry
}

func (e EnvVars) GetDefaultRefreshTokenExpiry() time.Duration {
	return e.Auth.RefreshTokenExpiry
}
