package pokemonrepofake

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/go-pokedex/pokemon"
)

var _ pokemon.Database = (*FakeDatabase)(nil)

// FakeDatabase is an in-memory pokemon.Database. Transactions work on a copy of the cache that
// replaces the committed state only when the transaction function succeeds.
type FakeDatabase struct {
	lock      sync.RWMutex
	txLock    sync.Mutex
	state     *cacheState
	favorites map[int]pokemon.Favorite
	details   map[int]pokemon.Detail

	// EntityUpsertErr, when set, fails every entity upsert
	EntityUpsertErr error
	// KeyUpsertErr, when set, fails every remote key upsert
	KeyUpsertErr error
	// ReadErr, when set, fails every entity and remote key read
	ReadErr error

	commits int
}

type cacheState struct {
	keys     map[int]pokemon.RemoteKey
	entities map[int]pokemon.Entity
}

func newCacheState() *cacheState {
	return &cacheState{
		keys:     make(map[int]pokemon.RemoteKey),
		entities: make(map[int]pokemon.Entity),
	}
}

func (s *cacheState) clone() *cacheState {
	c := newCacheState()
	for k, v := range s.keys {
		c.keys[k] = v
	}
	for k, v := range s.entities {
		c.entities[k] = v
	}
	return c
}

func NewFakeDatabase() *FakeDatabase {
	return &FakeDatabase{
		state:     newCacheState(),
		favorites: make(map[int]pokemon.Favorite),
		details:   make(map[int]pokemon.Detail),
	}
}

func (db *FakeDatabase) WithTx(ctx context.Context, fn func(tx pokemon.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.txLock.Lock()
	defer db.txLock.Unlock()

	db.lock.RLock()
	working := db.state.clone()
	db.lock.RUnlock()

	if err := fn(view{db: db, tx: working}); err != nil {
		return err
	}

	db.lock.Lock()
	db.state = working
	db.commits++
	db.lock.Unlock()
	return nil
}

func (db *FakeDatabase) RemoteKeys() pokemon.RemoteKeyRepo {
	return view{db: db}.RemoteKeys()
}

func (db *FakeDatabase) Entities() pokemon.EntityRepo {
	return view{db: db}.Entities()
}

func (db *FakeDatabase) Favorites() pokemon.FavoriteRepo {
	return &favoriteRepo{db: db}
}

func (db *FakeDatabase) Details() pokemon.DetailRepo {
	return &detailRepo{db: db}
}

// Commits returns the number of committed transactions
func (db *FakeDatabase) Commits() int {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.commits
}

// Snapshot returns the committed entities and remote keys ordered by ID
func (db *FakeDatabase) Snapshot() ([]pokemon.Entity, []pokemon.RemoteKey) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	entities := make([]pokemon.Entity, 0, len(db.state.entities))
	for _, e := range db.state.entities {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

	keys := make([]pokemon.RemoteKey, 0, len(db.state.keys))
	for _, k := range db.state.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].PokemonID < keys[j].PokemonID })
	return entities, keys
}

// view reads and writes either a transaction's working copy or, with tx nil, the committed state
type view struct {
	db *FakeDatabase
	tx *cacheState
}

func (v view) RemoteKeys() pokemon.RemoteKeyRepo { return &keyRepo{v} }
func (v view) Entities() pokemon.EntityRepo      { return &entityRepo{v} }

func (v view) read(fn func(s *cacheState)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.db.lock.RLock()
	defer v.db.lock.RUnlock()
	fn(v.db.state)
}

func (v view) write(fn func(s *cacheState)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.db.txLock.Lock()
	defer v.db.txLock.Unlock()
	v.db.lock.Lock()
	defer v.db.lock.Unlock()
	fn(v.db.state)
}

type keyRepo struct{ view }

func (r *keyRepo) UpsertAll(ctx context.Context, keys []pokemon.RemoteKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db.KeyUpsertErr != nil {
		return r.db.KeyUpsertErr
	}
	r.write(func(s *cacheState) {
		for _, k := range keys {
			s.keys[k.PokemonID] = k
		}
	})
	return nil
}

func (r *keyRepo) GetFor(_ context.Context, pokemonID int) (*pokemon.RemoteKey, error) {
	if r.db.ReadErr != nil {
		return nil, r.db.ReadErr
	}
	var key *pokemon.RemoteKey
	r.read(func(s *cacheState) {
		if k, ok := s.keys[pokemonID]; ok {
			key = &k
		}
	})
	return key, nil
}

func (r *keyRepo) Clear(_ context.Context) error {
	r.write(func(s *cacheState) {
		s.keys = make(map[int]pokemon.RemoteKey)
	})
	return nil
}

type entityRepo struct{ view }

func (r *entityRepo) UpsertAll(ctx context.Context, entities []pokemon.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db.EntityUpsertErr != nil {
		return r.db.EntityUpsertErr
	}
	r.write(func(s *cacheState) {
		for _, e := range entities {
			s.entities[e.ID] = e
		}
	})
	return nil
}

func (r *entityRepo) Page(_ context.Context, sortType pokemon.SortType, offset, limit int) ([]pokemon.Entity, error) {
	if r.db.ReadErr != nil {
		return nil, r.db.ReadErr
	}
	var all []pokemon.Entity
	r.read(func(s *cacheState) {
		all = make([]pokemon.Entity, 0, len(s.entities))
		for _, e := range s.entities {
			all = append(all, e)
		}
	})

	sort.Slice(all, func(i, j int) bool {
		if sortType == pokemon.SortByName && all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return []pokemon.Entity{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r *entityRepo) Count(_ context.Context) (int, error) {
	if r.db.ReadErr != nil {
		return 0, r.db.ReadErr
	}
	var n int
	r.read(func(s *cacheState) { n = len(s.entities) })
	return n, nil
}

func (r *entityRepo) Clear(_ context.Context) error {
	r.write(func(s *cacheState) {
		s.entities = make(map[int]pokemon.Entity)
	})
	return nil
}

type favoriteRepo struct {
	db *FakeDatabase
}

func (r *favoriteRepo) Upsert(_ context.Context, favorite pokemon.Favorite) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	r.db.favorites[favorite.ID] = favorite
	return nil
}

func (r *favoriteRepo) Delete(_ context.Context, id int) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	delete(r.db.favorites, id)
	return nil
}

func (r *favoriteRepo) Get(_ context.Context, id int) (*pokemon.Favorite, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()
	f, ok := r.db.favorites[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *favoriteRepo) Exists(_ context.Context, id int) (bool, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()
	_, ok := r.db.favorites[id]
	return ok, nil
}

func (r *favoriteRepo) List(_ context.Context) ([]pokemon.Favorite, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()
	favorites := make([]pokemon.Favorite, 0, len(r.db.favorites))
	for _, f := range r.db.favorites {
		favorites = append(favorites, f)
	}
	sort.Slice(favorites, func(i, j int) bool { return favorites[i].ID < favorites[j].ID })
	return favorites, nil
}

type detailRepo struct {
	db *FakeDatabase
}

func (r *detailRepo) Upsert(_ context.Context, detail *pokemon.Detail) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	stored := *detail
	stored.IsFavorite = false
	r.db.details[detail.ID] = stored
	return nil
}

func (r *detailRepo) Get(_ context.Context, id int) (*pokemon.Detail, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()
	d, ok := r.db.details[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *detailRepo) GetByName(_ context.Context, name string) (*pokemon.Detail, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()
	for _, d := range r.db.details {
		if strings.EqualFold(d.Name, name) {
			return &d, nil
		}
	}
	return nil, nil
}
