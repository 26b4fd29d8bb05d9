package pokemon

import "context"

// RemoteKeyRepo is the remote key ledger. Writes go through a Tx together with the entities
// of the same page.
type RemoteKeyRepo interface {
	UpsertAll(ctx context.Context, keys []RemoteKey) error
	// GetFor returns nil, nil when the Pokémon has no key
	GetFor(ctx context.Context, pokemonID int) (*RemoteKey, error)
	Clear(ctx context.Context) error
}

type EntityRepo interface {
	UpsertAll(ctx context.Context, entities []Entity) error
	Page(ctx context.Context, sort SortType, offset, limit int) ([]Entity, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type FavoriteRepo interface {
	Upsert(ctx context.Context, favorite Favorite) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Favorite, error)
	Exists(ctx context.Context, id int) (bool, error)
	List(ctx context.Context) ([]Favorite, error)
}

type DetailRepo interface {
	Upsert(ctx context.Context, detail *Detail) error
	Get(ctx context.Context, id int) (*Detail, error)
	GetByName(ctx context.Context, name string) (*Detail, error)
}

// Tx exposes the repos that must change together
type Tx interface {
	RemoteKeys() RemoteKeyRepo
	Entities() EntityRepo
}

// Database is the durable cache. Reads through the embedded Tx see committed data only.
type Database interface {
	Tx
	// WithTx runs fn in one transaction, committing only when fn returns nil
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Favorites() FavoriteRepo
	Details() DetailRepo
}
