package token

import (
	"context"
	"net/http"
	"time"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OAuth2Endpoint talks to a remote RFC 6749 token endpoint: the password grant for login and
// the refresh_token grant for refresh.
type OAuth2Endpoint struct {
	config     *oauth2.Config
	httpClient *http.Client
	nowFunc    func() time.Time
}

var _ Endpoint = (*OAuth2Endpoint)(nil)

// NewOAuth2Endpoint builds an endpoint for tokenURL. httpClient must not be the authenticated
// client; nil uses http.DefaultClient.
func NewOAuth2Endpoint(tokenURL, clientID, clientSecret string, httpClient *http.Client) *OAuth2Endpoint {
	return &OAuth2Endpoint{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		nowFunc:    time.Now,
	}
}

func (e *OAuth2Endpoint) Login(ctx context.Context, username, password string) (*oauthmodel.TokenResponse, error) {
	tok, err := e.config.PasswordCredentialsToken(e.withClient(ctx), username, password)
	if err != nil {
		return nil, errors.Wrap(classify(err, errs.ErrInvalidCredentials), "OAuth2Endpoint.Login PasswordCredentialsToken")
	}
	return e.toResponse(tok), nil
}

func (e *OAuth2Endpoint) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error) {
	if refreshToken == "" {
		return nil, errs.ErrInvalidRefreshToken
	}
	tok, err := e.config.TokenSource(e.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, errors.Wrap(classify(err, errs.ErrInvalidRefreshToken), "OAuth2Endpoint.Refresh Token")
	}

	resp := e.toResponse(tok)
	// The library carries the old refresh token forward when the server does not rotate it
	if resp.RefreshToken == refreshToken {
		resp.RefreshToken = ""
	}
	return resp, nil
}

func (e *OAuth2Endpoint) withClient(ctx context.Context) context.Context {
	if e.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

func (e *OAuth2Endpoint) toResponse(tok *oauth2.Token) *oauthmodel.TokenResponse {
	expiresIn := int(tok.ExpiresIn)
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int(tok.Expiry.Sub(e.nowFunc()).Seconds())
	}
	return &oauthmodel.TokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    expiresIn,
		RefreshToken: tok.RefreshToken,
	}
}

// classify maps token endpoint failures: a 4xx answer means the grant was rejected,
// other answers are protocol errors, and no answer at all is a network error.
func classify(err error, rejected error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return errs.Mark(err, errs.ErrNetwork)
	}
	switch retrieveErr.ErrorCode {
	case oauthmodel.ErrorCodeInvalidGrant, oauthmodel.ErrorCodeInvalidClient:
		return errs.Mark(err, rejected)
	}
	if retrieveErr.Response != nil {
		code := retrieveErr.Response.StatusCode
		if code == http.StatusBadRequest || code == http.StatusUnauthorized {
			return errs.Mark(err, rejected)
		}
	}
	return errs.Mark(err, errs.ErrProtocol)
}
