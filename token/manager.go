package token

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/internal/observable"
	"github.com/jrsteele09/go-pokedex/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Manager owns the signed-in session: it answers expiry questions offline, performs
// single-flight refreshes and publishes the current access token to observers.
//
// Reads never block. Every write (login, refresh, logout) happens under refreshLock, and
// refreshes additionally go through a singleflight group keyed by the token generation the
// caller observed, so callers that saw the same token share one endpoint call.
type Manager struct {
	repo          session.Repo
	endpoint      Endpoint
	nowFunc       func() time.Time
	defaultExpiry time.Duration

	current     atomic.Pointer[session.Session]
	accessToken *observable.Value[string]
	loggedIn    *observable.Value[bool]

	refreshLock sync.Mutex
	flights     singleflight.Group
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithDefaultExpiry sets the access token lifetime assumed when the endpoint omits expires_in
func WithDefaultExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.defaultExpiry = expiry
	}
}

func New(repo session.Repo, endpoint Endpoint, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:        repo,
		endpoint:    endpoint,
		accessToken: observable.New(""),
		loggedIn:    observable.New(false),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.defaultExpiry == 0 {
		m.defaultExpiry = time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Restore loads the persisted session, if any, and publishes it.
func (m *Manager) Restore(ctx context.Context) error {
	s, err := m.repo.Get(ctx)
	if err != nil {
		return errors.Wrap(errs.Mark(err, errs.ErrStorage), "Manager.Restore Get")
	}

	m.refreshLock.Lock()
	defer m.refreshLock.Unlock()
	m.publish(s)
	return nil
}

// AccessTokens publishes the current access token, "" while logged out.
func (m *Manager) AccessTokens() observable.Reader[string] {
	return m.accessToken
}

func (m *Manager) LoggedIn() observable.Reader[bool] {
	return m.loggedIn
}

func (m *Manager) AccessToken() string {
	if s := m.current.Load(); s != nil {
		return s.AccessToken
	}
	return ""
}

func (m *Manager) HasSession() bool {
	return m.current.Load() != nil
}

// Session returns the current session snapshot, nil while logged out. It must not be modified.
func (m *Manager) Session() *session.Session {
	return m.current.Load()
}

// IsExpired reports whether there is no usable access token: no session, or the expiry has passed.
func (m *Manager) IsExpired() bool {
	return !m.current.Load().Valid(m.nowFunc())
}

// Login exchanges credentials for tokens and persists the new session.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	resp, err := m.endpoint.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "Manager.Login")
	}
	if resp.AccessToken == "" {
		return errors.Wrap(errs.ErrProtocol, "Manager.Login empty access token")
	}

	s := &session.Session{
		UserID:       username,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.expiresAt(resp.ExpiresIn),
	}

	m.refreshLock.Lock()
	defer m.refreshLock.Unlock()
	if err := m.repo.Upsert(ctx, s); err != nil {
		return errors.Wrap(errs.Mark(err, errs.ErrStorage), "Manager.Login Upsert")
	}
	m.publish(s)
	log.Info().Str("user", username).Time("expires_at", s.ExpiresAt).Msg("Logged in")
	return nil
}

// Logout clears the session. Logging out while logged out is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.refreshLock.Lock()
	defer m.refreshLock.Unlock()

	m.publish(nil)
	if err := m.repo.Delete(ctx); err != nil {
		return errors.Wrap(errs.Mark(err, errs.ErrStorage), "Manager.Logout Delete")
	}
	return nil
}

// Refresh obtains a new access token for the current session. Concurrent callers share one
// endpoint call. When the refresh is rejected the session is cleared and the returned error
// matches errs.ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.refreshFrom(ctx, m.AccessToken())
}

// RefreshFrom refreshes the session only if its access token is still seen. Once another
// caller has moved the session on, the current token is returned with no network call.
func (m *Manager) RefreshFrom(ctx context.Context, seen string) (string, error) {
	return m.refreshFrom(ctx, seen)
}

// RefreshAfterUnauthorized is RefreshFrom for a request that was rejected with failedToken.
func (m *Manager) RefreshAfterUnauthorized(ctx context.Context, failedToken string) (string, error) {
	return m.refreshFrom(ctx, failedToken)
}

func (m *Manager) refreshFrom(ctx context.Context, seen string) (string, error) {
	// The shared call must outlive any single caller's cancellation
	flightCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan("refresh:"+seen, func() (any, error) {
		return m.refreshLocked(flightCtx, seen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) refreshLocked(ctx context.Context, seen string) (string, error) {
	m.refreshLock.Lock()
	defer m.refreshLock.Unlock()

	cur := m.current.Load()
	if cur == nil {
		return "", errs.ErrNotLoggedIn
	}
	if cur.AccessToken != seen {
		return cur.AccessToken, nil
	}

	resp, err := m.endpoint.Refresh(ctx, cur.RefreshToken)
	if err == nil && resp.AccessToken == "" {
		err = errors.Wrap(errs.ErrProtocol, "empty access token")
	}
	if err != nil {
		log.Warn().Err(err).Str("user", cur.UserID).Msg("Token refresh failed, clearing session")
		m.publish(nil)
		if delErr := m.repo.Delete(ctx); delErr != nil {
			log.Err(delErr).Msg("Failed to clear session after refresh failure")
		}
		return "", errors.Wrap(errs.Mark(err, errs.ErrSessionExpired), "Manager.Refresh")
	}

	next := cur.WithAccessToken(resp.AccessToken, resp.RefreshToken, m.expiresAt(resp.ExpiresIn))
	// next is published even when it cannot be saved; the old refresh token may be rotated away
	m.publish(next)
	if err := m.repo.Upsert(ctx, next); err != nil {
		log.Err(err).Str("user", next.UserID).Msg("Refreshed session not saved, the stored refresh token may be stale")
	}
	log.Debug().Str("user", next.UserID).Time("expires_at", next.ExpiresAt).Msg("Access token refreshed")
	return next.AccessToken, nil
}

func (m *Manager) expiresAt(expiresIn int) time.Time {
	lifetime := time.Duration(expiresIn) * time.Second
	if expiresIn <= 0 {
		lifetime = m.defaultExpiry
	}
	return m.nowFunc().Add(lifetime)
}

// publish swaps the session snapshot and notifies observers. Callers hold refreshLock.
func (m *Manager) publish(s *session.Session) {
	m.current.Store(s)
	if s == nil {
		m.accessToken.Set("")
		m.loggedIn.Set(false)
		return
	}
	m.accessToken.Set(s.AccessToken)
	m.loggedIn.Set(true)
}
