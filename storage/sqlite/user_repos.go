package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/go-pokedex/pokemon"
)

const (
	favoritesTable = "favorite_pokemon"
	detailsTable   = "pokemon_details"
)

type favoriteRepo struct {
	q querier
}

func (r *favoriteRepo) Upsert(ctx context.Context, favorite pokemon.Favorite) error {
	insert := ssq.Insert(favoritesTable).Options("OR REPLACE").
		Columns("id", "name", "image_url").
		Values(favorite.ID, favorite.Name, favorite.ImageURL)
	if err := exec(ctx, r.q, insert); err != nil {
		return fmt.Errorf("upserting favorite %d: %w", favorite.ID, err)
	}
	return nil
}

func (r *favoriteRepo) Delete(ctx context.Context, id int) error {
	if err := exec(ctx, r.q, ssq.Delete(favoritesTable).Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("deleting favorite %d: %w", id, err)
	}
	return nil
}

func (r *favoriteRepo) Get(ctx context.Context, id int) (*pokemon.Favorite, error) {
	query, args, err := ssq.Select("id", "name", "image_url").From(favoritesTable).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var f pokemon.Favorite
	err = r.q.QueryRowContext(ctx, query, args...).Scan(&f.ID, &f.Name, &f.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting favorite %d: %w", id, err)
	}
	return &f, nil
}

func (r *favoriteRepo) Exists(ctx context.Context, id int) (bool, error) {
	f, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return f != nil, nil
}

func (r *favoriteRepo) List(ctx context.Context) ([]pokemon.Favorite, error) {
	query, args, err := ssq.Select("id", "name", "image_url").From(favoritesTable).
		OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying favorites: %w", err)
	}
	defer rows.Close()

	favorites := []pokemon.Favorite{}
	for rows.Next() {
		var f pokemon.Favorite
		if err := rows.Scan(&f.ID, &f.Name, &f.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorites: %w", err)
	}
	return favorites, nil
}

type detailRepo struct {
	q querier
}

func (r *detailRepo) Upsert(ctx context.Context, detail *pokemon.Detail) error {
	stored := *detail
	stored.IsFavorite = false
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding detail %d: %w", detail.ID, err)
	}
	insert := ssq.Insert(detailsTable).Options("OR REPLACE").
		Columns("id", "name", "payload", "updated_at").
		Values(detail.ID, detail.Name, string(payload), time.Now().UTC().UnixMilli())
	if err := exec(ctx, r.q, insert); err != nil {
		return fmt.Errorf("upserting detail %d: %w", detail.ID, err)
	}
	return nil
}

func (r *detailRepo) Get(ctx context.Context, id int) (*pokemon.Detail, error) {
	return r.getWhere(ctx, sq.Eq{"id": id})
}

func (r *detailRepo) GetByName(ctx context.Context, name string) (*pokemon.Detail, error) {
	return r.getWhere(ctx, sq.Expr("name = ? COLLATE NOCASE", strings.TrimSpace(name)))
}

func (r *detailRepo) getWhere(ctx context.Context, pred sq.Sqlizer) (*pokemon.Detail, error) {
	query, args, err := ssq.Select("payload").From(detailsTable).Where(pred).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var payload string
	err = r.q.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting detail: %w", err)
	}

	var detail pokemon.Detail
	if err := json.Unmarshal([]byte(payload), &detail); err != nil {
		return nil, fmt.Errorf("decoding detail: %w", err)
	}
	return &detail, nil
}
