package session

import "time"

// Session is the signed-in user's credential set. It is persisted as a whole and replaced,
// never edited in place, so a *Session handed out to readers is immutable.
type Session struct {
	UserID       string    // The username that logged in
	AccessToken  string    // Bearer token attached to API requests
	RefreshToken string    // Opaque token exchanged for a new access token
	ExpiresAt    time.Time // Access token expiry, computed locally at issue time
}

// Valid reports whether the access token is still usable at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// WithAccessToken returns a copy carrying a refreshed access token. An empty refreshToken
// keeps the current one.
func (s *Session) WithAccessToken(accessToken, refreshToken string, expiresAt time.Time) *Session {
	next := *s
	next.AccessToken = accessToken
	if refreshToken != "" {
		next.RefreshToken = refreshToken
	}
	next.ExpiresAt = expiresAt
	return &next
}
