package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/go-pokedex/pokemon"
)

const (
	remoteKeysTable  = "remote_keys"
	pokemonListTable = "pokemon_list"
)

var entityColumns = []string{"id", "name", "image_url", "page"}

type remoteKeyRepo struct {
	q querier
}

func (r *remoteKeyRepo) UpsertAll(ctx context.Context, keys []pokemon.RemoteKey) error {
	if len(keys) == 0 {
		return nil
	}
	insert := ssq.Insert(remoteKeysTable).Options("OR REPLACE").
		Columns("pokemon_id", "prev_key", "next_key")
	for _, k := range keys {
		insert = insert.Values(k.PokemonID, nullInt(k.PrevKey), nullInt(k.NextKey))
	}
	if err := exec(ctx, r.q, insert); err != nil {
		return fmt.Errorf("upserting remote keys: %w", err)
	}
	return nil
}

func (r *remoteKeyRepo) GetFor(ctx context.Context, pokemonID int) (*pokemon.RemoteKey, error) {
	query, args, err := ssq.Select("pokemon_id", "prev_key", "next_key").
		From(remoteKeysTable).
		Where(sq.Eq{"pokemon_id": pokemonID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		key        pokemon.RemoteKey
		prev, next sql.NullInt64
	)
	err = r.q.QueryRowContext(ctx, query, args...).Scan(&key.PokemonID, &prev, &next)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting remote key %d: %w", pokemonID, err)
	}
	key.PrevKey = intPtr(prev)
	key.NextKey = intPtr(next)
	return &key, nil
}

func (r *remoteKeyRepo) Clear(ctx context.Context) error {
	if err := exec(ctx, r.q, ssq.Delete(remoteKeysTable)); err != nil {
		return fmt.Errorf("clearing remote keys: %w", err)
	}
	return nil
}

type entityRepo struct {
	q querier
}

func (r *entityRepo) UpsertAll(ctx context.Context, entities []pokemon.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	insert := ssq.Insert(pokemonListTable).Options("OR REPLACE").Columns(entityColumns...)
	for _, e := range entities {
		insert = insert.Values(e.ID, e.Name, e.ImageURL, e.Page)
	}
	if err := exec(ctx, r.q, insert); err != nil {
		return fmt.Errorf("upserting pokemon list: %w", err)
	}
	return nil
}

func (r *entityRepo) Page(ctx context.Context, sort pokemon.SortType, offset, limit int) ([]pokemon.Entity, error) {
	selectQuery := ssq.Select(entityColumns...).From(pokemonListTable)
	if sort == pokemon.SortByName {
		selectQuery = selectQuery.OrderBy("name ASC", "id ASC")
	} else {
		selectQuery = selectQuery.OrderBy("id ASC")
	}
	query, args, err := selectQuery.Limit(uint64(max(limit, 0))).Offset(uint64(max(offset, 0))).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pokemon list: %w", err)
	}
	defer rows.Close()

	entities := []pokemon.Entity{}
	for rows.Next() {
		var e pokemon.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.ImageURL, &e.Page); err != nil {
			return nil, fmt.Errorf("scanning pokemon list: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pokemon list: %w", err)
	}
	return entities, nil
}

func (r *entityRepo) Count(ctx context.Context) (int, error) {
	query, args, err := ssq.Select("COUNT(*)").From(pokemonListTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pokemon list: %w", err)
	}
	return n, nil
}

func (r *entityRepo) Clear(ctx context.Context) error {
	if err := exec(ctx, r.q, ssq.Delete(pokemonListTable)); err != nil {
		return fmt.Errorf("clearing pokemon list: %w", err)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
