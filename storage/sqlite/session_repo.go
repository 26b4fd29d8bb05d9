package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/go-pokedex/session"
)

const authPrefsTable = "auth_prefs"

// Session keys in auth_prefs
const (
	keyIsLoggedIn      = "is_logged_in"
	keySessionUser     = "session_user"
	keyAccessToken     = "access_token"
	keyRefreshToken    = "refresh_token"
	keyTokenExpiration = "token_expiration"
)

var credentialKeys = []string{keySessionUser, keyAccessToken, keyRefreshToken, keyTokenExpiration}

// sessionRepo keeps the session as key/value rows; token_expiration is unix milliseconds
type sessionRepo struct {
	db *sql.DB
}

var _ session.Repo = (*sessionRepo)(nil)

func (r *sessionRepo) Get(ctx context.Context) (*session.Session, error) {
	query, args, err := ssq.Select("key", "value").From(authPrefsTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying auth prefs: %w", err)
	}
	defer rows.Close()

	prefs := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning auth prefs: %w", err)
		}
		prefs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating auth prefs: %w", err)
	}

	if prefs[keyIsLoggedIn] != "true" {
		return nil, nil
	}
	millis, err := strconv.ParseInt(prefs[keyTokenExpiration], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing token expiration: %w", err)
	}
	return &session.Session{
		UserID:       prefs[keySessionUser],
		AccessToken:  prefs[keyAccessToken],
		RefreshToken: prefs[keyRefreshToken],
		ExpiresAt:    time.UnixMilli(millis).UTC(),
	}, nil
}

func (r *sessionRepo) Upsert(ctx context.Context, s *session.Session) error {
	insert := ssq.Insert(authPrefsTable).Options("OR REPLACE").Columns("key", "value").
		Values(keyIsLoggedIn, "true").
		Values(keySessionUser, s.UserID).
		Values(keyAccessToken, s.AccessToken).
		Values(keyRefreshToken, s.RefreshToken).
		Values(keyTokenExpiration, strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10))
	if err := exec(ctx, r.db, insert); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	loggedOut := ssq.Insert(authPrefsTable).Options("OR REPLACE").Columns("key", "value").
		Values(keyIsLoggedIn, "false")
	if err := exec(ctx, tx, loggedOut); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if err := exec(ctx, tx, ssq.Delete(authPrefsTable).Where(sq.Eq{"key": credentialKeys})); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
