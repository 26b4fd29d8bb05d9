package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
)

// RequireAuth is middleware that validates a Bearer access token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != oauthmodel.BearerTokenType {
				writeUnauthorized(w, "Invalid Authorization header format")
				return
			}

			token := strings.TrimSpace(parts[1])
			if token == "" {
				writeUnauthorized(w, "Empty token")
				return
			}

			claims, err := s.issuer.Verify(token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected bearer token")
				writeUnauthorized(w, err.Error())
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), ContextKeyUserID, claims.Subject))
			recordUser(w, r)
			next(w, r)
		}
	}
}

// UserIDFromContext returns the subject of the verified token, if any
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	return userID, ok
}

// recordUser copies the authenticated user onto the request log
func recordUser(w http.ResponseWriter, r *http.Request) {
	rec, ok := w.(*statusRecorder)
	if !ok {
		return
	}
	rec.userID, _ = UserIDFromContext(r.Context())
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+oauthmodel.ErrorCodeInvalidToken+`"`)
	writeJSONError(w, oauthmodel.ErrorCodeInvalidToken, description, http.StatusUnauthorized)
}
