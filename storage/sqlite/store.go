// Package sqlite is the durable cache and session store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/jrsteele09/go-pokedex/session"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ssq builds statements with ? placeholders
var ssq = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements pokemon.Database and, through Sessions, session.Repo
type Store struct {
	db *sql.DB
}

var _ pokemon.Database = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data folder: %w", err)
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database without migrating it
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn in a transaction that is committed only when fn succeeds
func (s *Store) WithTx(ctx context.Context, fn func(tx pokemon.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txRepos{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) RemoteKeys() pokemon.RemoteKeyRepo {
	return &remoteKeyRepo{q: s.db}
}

func (s *Store) Entities() pokemon.EntityRepo {
	return &entityRepo{q: s.db}
}

func (s *Store) Favorites() pokemon.FavoriteRepo {
	return &favoriteRepo{q: s.db}
}

func (s *Store) Details() pokemon.DetailRepo {
	return &detailRepo{q: s.db}
}

func (s *Store) Sessions() session.Repo {
	return &sessionRepo{db: s.db}
}

type txRepos struct {
	q querier
}

func (t txRepos) RemoteKeys() pokemon.RemoteKeyRepo {
	return &remoteKeyRepo{q: t.q}
}

func (t txRepos) Entities() pokemon.EntityRepo {
	return &entityRepo{q: t.q}
}

func exec(ctx context.Context, q querier, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}
