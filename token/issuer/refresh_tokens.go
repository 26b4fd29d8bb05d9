package issuer

import (
	"sync"
	"time"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
)

// StoredRefreshToken is the server-side record behind an opaque refresh token.
type StoredRefreshToken struct {
	Token    string    // The random token string sent to the client
	UserID   string    // Owner of the token
	ClientID string    // Client that requested it
	Iat      time.Time // Issued at
}

// RefreshTokenRepo stores refresh tokens keyed by the token string.
type RefreshTokenRepo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID string) (*StoredRefreshToken, error)
}

type inMemoryRefreshTokens struct {
	tokens  map[string]*StoredRefreshToken
	userIDs map[string]string // user ID to token
	lock    sync.RWMutex
}

var _ RefreshTokenRepo = (*inMemoryRefreshTokens)(nil)

// NewInMemoryRefreshTokenRepo keeps one refresh token per user in memory.
func NewInMemoryRefreshTokenRepo() RefreshTokenRepo {
	return &inMemoryRefreshTokens{
		tokens:  make(map[string]*StoredRefreshToken),
		userIDs: make(map[string]string),
	}
}

func (r *inMemoryRefreshTokens) Upsert(refreshToken *StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.tokens[refreshToken.Token] = refreshToken
	r.userIDs[refreshToken.UserID] = refreshToken.Token
	return nil
}

func (r *inMemoryRefreshTokens) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return errs.ErrNotFound
	}
	if r.userIDs[rt.UserID] == token {
		delete(r.userIDs, rt.UserID)
	}
	delete(r.tokens, token)
	return nil
}

func (r *inMemoryRefreshTokens) Get(token string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return rt, nil
}

func (r *inMemoryRefreshTokens) GetByUserID(userID string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	token, ok := r.userIDs[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.tokens[token], nil
}

// revokedAccessTokens remembers revoked JWT IDs until the token would have expired anyway
type revokedAccessTokens struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func newRevokedAccessTokens() *revokedAccessTokens {
	return &revokedAccessTokens{
		revoked: make(map[string]time.Time),
	}
}

func (c *revokedAccessTokens) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *revokedAccessTokens) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

func (c *revokedAccessTokens) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
