package issuer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/jrsteele09/go-pokedex/token"
	"github.com/pkg/errors"
)

// MinPasswordLength is the shortest password the issuer accepts.
const MinPasswordLength = 4

// Claims are the verified contents of an access token
type Claims struct {
	Subject  string
	ClientID string
	ID       string
	IssuedAt time.Time
	Expiry   time.Time
}

// Issuer is the stub token endpoint: it accepts any non-blank user with a password of at
// least MinPasswordLength characters, signs HS256 access tokens and keeps opaque refresh
// tokens in a RefreshTokenRepo. It serves both the in-process client and the dev backend.
type Issuer struct {
	signer             Signer
	refreshRepo        RefreshTokenRepo
	revoked            *revokedAccessTokens
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

var _ token.Endpoint = (*Issuer)(nil)

type Option func(*Issuer)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) Option {
	return func(i *Issuer) {
		i.accessTokenExpiry = accessTokenExpiry
		i.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuer(issuer string) Option {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func WithRefreshTokenRepo(repo RefreshTokenRepo) Option {
	return func(i *Issuer) {
		i.refreshRepo = repo
	}
}

func New(signer Signer, options ...Option) *Issuer {
	i := &Issuer{
		signer:  signer,
		revoked: newRevokedAccessTokens(),
		issuer:  "pokedex",
	}

	for _, opt := range options {
		opt(i)
	}

	if i.refreshRepo == nil {
		i.refreshRepo = NewInMemoryRefreshTokenRepo()
	}
	if i.accessTokenExpiry == 0 {
		i.accessTokenExpiry = time.Hour
	}
	if i.refreshTokenExpiry == 0 {
		i.refreshTokenExpiry = 7 * 24 * time.Hour
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// Login implements token.Endpoint with the resource owner password grant.
func (i *Issuer) Login(_ context.Context, username, password string) (*oauthmodel.TokenResponse, error) {
	return i.Token(oauthmodel.TokenRequest{
		GrantType: oauthmodel.PasswordGrant,
		Username:  username,
		Password:  password,
	})
}

// Refresh implements token.Endpoint with the refresh token grant.
func (i *Issuer) Refresh(_ context.Context, refreshToken string) (*oauthmodel.TokenResponse, error) {
	return i.Token(oauthmodel.TokenRequest{
		GrantType:    oauthmodel.RefreshTokenGrant,
		RefreshToken: refreshToken,
	})
}

// Token handles a token endpoint request for either supported grant type.
func (i *Issuer) Token(req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	switch req.GrantType {
	case oauthmodel.PasswordGrant:
		return i.handlePasswordGrant(req)
	case oauthmodel.RefreshTokenGrant:
		return i.handleRefreshTokenGrant(req)
	}
	return nil, oauthmodel.ErrUnsupportedGrantType
}

func (i *Issuer) handlePasswordGrant(req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if strings.TrimSpace(req.Username) == "" || utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, errs.ErrInvalidCredentials
	}

	accessToken, err := i.CreateAccessToken(req.Username, req.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.handlePasswordGrant CreateAccessToken")
	}
	refreshToken, err := i.CreateRefreshToken(req.ClientID, req.Username)
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.handlePasswordGrant CreateRefreshToken")
	}

	return &oauthmodel.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    oauthmodel.BearerTokenType,
		ExpiresIn:    int(i.accessTokenExpiry.Seconds()),
		RefreshToken: refreshToken,
	}, nil
}

func (i *Issuer) handleRefreshTokenGrant(req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	rt, err := i.refreshRepo.Get(req.RefreshToken)
	if err != nil {
		return nil, errs.ErrInvalidRefreshToken
	}

	if i.nowFunc().Sub(rt.Iat) > i.refreshTokenExpiry {
		_ = i.refreshRepo.Delete(rt.Token)
		return nil, errs.ErrRefreshTokenExpired
	}

	accessToken, err := i.CreateAccessToken(rt.UserID, rt.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.handleRefreshTokenGrant CreateAccessToken")
	}

	return &oauthmodel.TokenResponse{
		AccessToken: accessToken,
		TokenType:   oauthmodel.BearerTokenType,
		ExpiresIn:   int(i.accessTokenExpiry.Seconds()),
	}, nil
}

func (i *Issuer) CreateAccessToken(userID, clientID string) (string, error) {
	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss": i.issuer,
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(i.accessTokenExpiry).Unix(),
		"jti": uuid.New().String(), // Unique token ID for revocation
	}
	if clientID != "" {
		claims["client_id"] = clientID
	}
	return i.signer.Sign(claims)
}

// CreateRefreshToken issues a new refresh token, replacing any the user already holds.
func (i *Issuer) CreateRefreshToken(clientID, userID string) (string, error) {
	if existing, err := i.refreshRepo.GetByUserID(userID); err == nil && existing != nil {
		if err := i.refreshRepo.Delete(existing.Token); err != nil {
			return "", errors.Wrap(err, "Issuer.CreateRefreshToken Delete")
		}
	}

	tokenBytes := make([]byte, 32) // 256 bits
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "Issuer.CreateRefreshToken rand.Read")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := i.refreshRepo.Upsert(&StoredRefreshToken{
		Token:    tokenStr,
		UserID:   userID,
		ClientID: clientID,
		Iat:      i.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "Issuer.CreateRefreshToken Upsert")
	}
	return tokenStr, nil
}

// Verify validates an access token's signature, expiry and revocation state.
func (i *Issuer) Verify(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errs.ErrInvalidToken
	}

	parsed, err := jwt.Parse(rawToken, i.signer.GetVerificationKey,
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.ErrTokenExpired
		}
		return nil, errs.Mark(err, errs.ErrInvalidToken)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errs.ErrInvalidToken
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims["sub"].(string)
	claims.ClientID, _ = mapClaims["client_id"].(string)
	claims.ID, _ = mapClaims["jti"].(string)
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}

	if claims.ID != "" && i.revoked.IsRevoked(claims.ID) {
		return nil, errs.ErrTokenRevoked
	}
	return claims, nil
}

// RevokeAccessToken makes a still unexpired access token fail verification.
func (i *Issuer) RevokeAccessToken(rawToken string) error {
	claims, err := i.Verify(rawToken)
	if err != nil {
		return errors.Wrap(err, "Issuer.RevokeAccessToken Verify")
	}
	if claims.ID == "" {
		return errors.New("token missing jti claim")
	}
	i.revoked.Cleanup(i.nowFunc())
	i.revoked.Add(claims.ID, claims.Expiry)
	return nil
}

// RevokeRefreshToken invalidates a refresh token; unknown tokens are ignored.
func (i *Issuer) RevokeRefreshToken(refreshToken string) {
	_ = i.refreshRepo.Delete(refreshToken)
}
