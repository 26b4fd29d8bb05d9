package server

import (
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

// Token exchanges credentials or a refresh token for tokens
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenReq := oauthmodel.TokenRequestFromForm(r.PostForm)
		if err := tokenReq.Validate(); err != nil {
			code := oauthmodel.ErrorCodeInvalidRequest
			if errors.Is(err, oauthmodel.ErrUnsupportedGrantType) {
				code = oauthmodel.ErrorCodeUnsupportedGrantType
			}
			writeJSONError(w, code, err.Error(), http.StatusBadRequest)
			return
		}

		tokenResponse, err := s.issuer.Token(tokenReq)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrInvalidCredentials),
				errs.Is(err, errs.ErrInvalidRefreshToken),
				errs.Is(err, errs.ErrRefreshTokenExpired):
				writeJSONError(w, oauthmodel.ErrorCodeInvalidGrant, err.Error(), http.StatusBadRequest)
			default:
				log.Err(err).Str("grant_type", string(tokenReq.GrantType)).Msg("Token request failed")
				writeJSONError(w, oauthmodel.ErrorCodeServerError, "token request failed", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauthmodel.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
