package auth

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-pokedex/token"
	"github.com/rs/zerolog/log"
)

const (
	HeaderAuthorization = "Authorization"

	// HeaderNoAuthentication marks a request that must go out without credentials.
	// The transport strips it before sending.
	HeaderNoAuthentication = "No-Authentication"

	bearerPrefix = "Bearer "
)

// TokenSource is what the transport needs from the token lifecycle.
type TokenSource interface {
	AccessToken() string
	HasSession() bool
	IsExpired() bool
	RefreshFrom(ctx context.Context, seen string) (string, error)
	RefreshAfterUnauthorized(ctx context.Context, failedToken string) (string, error)
	Logout(ctx context.Context) error
}

var _ TokenSource = (*token.Manager)(nil)

// Transport authenticates outgoing requests. Before sending it refreshes an expired token
// and attaches it as a bearer token; on a 401 it refreshes (or picks up a token another
// request already refreshed) and replays the request once. When the refresh fails the
// session is logged out and the 401 is returned to the caller.
type Transport struct {
	tokens TokenSource
	base   http.RoundTripper
}

var _ http.RoundTripper = (*Transport)(nil)

type TransportOption func(*Transport)

func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

func NewTransport(tokens TokenSource, options ...TransportOption) *Transport {
	t := &Transport{tokens: tokens}
	for _, opt := range options {
		opt(t)
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	return t
}

// NewClient returns an http.Client whose requests go through a Transport.
func NewClient(tokens TokenSource, timeout time.Duration, options ...TransportOption) *http.Client {
	return &http.Client{
		Transport: NewTransport(tokens, options...),
		Timeout:   timeout,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(HeaderNoAuthentication) != "" {
		out := req.Clone(req.Context())
		out.Header.Del(HeaderNoAuthentication)
		return t.base.RoundTrip(out)
	}
	if req.Header.Get(HeaderAuthorization) != "" {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	// seen is read before the expiry check so a token refreshed meanwhile is not refreshed again
	seen := t.tokens.AccessToken()
	if t.tokens.HasSession() && t.tokens.IsExpired() {
		if _, err := t.tokens.RefreshFrom(ctx, seen); err != nil {
			if ctx.Err() != nil {
				closeBody(req)
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("Token refresh before request failed")
		}
	}

	accessToken := t.tokens.AccessToken()
	resp, err := t.base.RoundTrip(withBearer(req, accessToken))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || accessToken == "" {
		return resp, err
	}
	return t.retryUnauthorized(req, resp, accessToken)
}

func (t *Transport) retryUnauthorized(req *http.Request, resp *http.Response, failedToken string) (*http.Response, error) {
	ctx := req.Context()
	fresh, err := t.tokens.RefreshAfterUnauthorized(ctx, failedToken)
	if err != nil {
		if ctx.Err() != nil {
			drainAndClose(resp.Body)
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("Token refresh after 401 failed, logging out")
		if logoutErr := t.tokens.Logout(ctx); logoutErr != nil {
			log.Err(logoutErr).Msg("Failed to log out after refresh failure")
		}
		return resp, nil
	}

	retry, ok := rewind(req)
	if !ok {
		log.Debug().Str("url", req.URL.Redacted()).Msg("Request body cannot be replayed, returning 401")
		return resp, nil
	}
	drainAndClose(resp.Body)
	return t.base.RoundTrip(withBearer(retry, fresh))
}

func withBearer(req *http.Request, accessToken string) *http.Request {
	out := req.Clone(req.Context())
	if accessToken != "" {
		out.Header.Set(HeaderAuthorization, bearerPrefix+accessToken)
	}
	return out
}

// rewind returns a copy of req with a fresh body, or false if the body cannot be read again.
func rewind(req *http.Request) (*http.Request, bool) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	retry.Body = body
	return retry, true
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}
