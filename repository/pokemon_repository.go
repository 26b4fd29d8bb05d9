package repository

import (
	"context"
	"strconv"
	"strings"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/paging"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// API is the remote side of the repository
type API interface {
	paging.Fetcher
	GetPokemon(ctx context.Context, idOrName string) (*pokeapi.PokemonResponse, error)
	GetSpecies(ctx context.Context, id int) (*pokeapi.SpeciesResponse, error)
}

var _ API = (*pokeapi.Client)(nil)

// PokemonRepository is the boundary the UI layer talks to
type PokemonRepository struct {
	db           pokemon.Database
	api          API
	pagerOptions []paging.PagerOption
}

func NewPokemonRepository(db pokemon.Database, api API, pagerOptions ...paging.PagerOption) *PokemonRepository {
	return &PokemonRepository{
		db:           db,
		api:          api,
		pagerOptions: pagerOptions,
	}
}

// Pager returns a new pager over the cache in the given order
func (r *PokemonRepository) Pager(sort pokemon.SortType) *paging.Pager {
	return paging.NewPager(r.db, r.api, sort, r.pagerOptions...)
}

// GetPokemonDetail fetches a Pokémon with its species description, which is optional.
// The result is cached; the cached copy is served when the network is unavailable.
func (r *PokemonRepository) GetPokemonDetail(ctx context.Context, idOrName string) (*pokemon.Detail, error) {
	resp, err := r.api.GetPokemon(ctx, idOrName)
	if err != nil {
		if errs.Retryable(err) {
			if cached := r.cachedDetail(ctx, idOrName); cached != nil {
				log.Warn().Err(err).Str("pokemon", idOrName).Msg("Serving cached detail")
				return cached, nil
			}
		}
		return nil, errors.Wrap(err, "PokemonRepository.GetPokemonDetail GetPokemon")
	}

	species, err := r.api.GetSpecies(ctx, resp.ID)
	if err != nil {
		log.Debug().Err(err).Int("id", resp.ID).Msg("Species unavailable, no description")
		species = nil
	}

	isFavorite, err := r.db.Favorites().Exists(ctx, resp.ID)
	if err != nil {
		return nil, errs.Mark(errors.Wrap(err, "PokemonRepository.GetPokemonDetail Exists"), errs.ErrStorage)
	}

	detail := resp.ToDetail(isFavorite, species)
	if err := r.db.Details().Upsert(ctx, detail); err != nil {
		log.Warn().Err(err).Int("id", detail.ID).Msg("Failed to cache detail")
	}
	return detail, nil
}

func (r *PokemonRepository) cachedDetail(ctx context.Context, idOrName string) *pokemon.Detail {
	var (
		detail *pokemon.Detail
		err    error
	)
	key := strings.TrimSpace(idOrName)
	if id, convErr := strconv.Atoi(key); convErr == nil {
		detail, err = r.db.Details().Get(ctx, id)
	} else {
		detail, err = r.db.Details().GetByName(ctx, key)
	}
	if err != nil || detail == nil {
		return nil
	}
	detail.IsFavorite, _ = r.db.Favorites().Exists(ctx, detail.ID)
	return detail
}

// ToggleFavorite removes the favorite if present, otherwise looks the Pokémon up and adds it.
// It returns whether the Pokémon is now a favorite.
func (r *PokemonRepository) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	favorites := r.db.Favorites()
	exists, err := favorites.Exists(ctx, id)
	if err != nil {
		return false, errs.Mark(errors.Wrap(err, "PokemonRepository.ToggleFavorite Exists"), errs.ErrStorage)
	}
	if exists {
		if err := favorites.Delete(ctx, id); err != nil {
			return true, errs.Mark(errors.Wrap(err, "PokemonRepository.ToggleFavorite Delete"), errs.ErrStorage)
		}
		return false, nil
	}

	detail, err := r.GetPokemonDetail(ctx, strconv.Itoa(id))
	if err != nil {
		return false, errors.Wrap(err, "PokemonRepository.ToggleFavorite GetPokemonDetail")
	}
	if err := favorites.Upsert(ctx, detail.Favorite()); err != nil {
		return false, errs.Mark(errors.Wrap(err, "PokemonRepository.ToggleFavorite Upsert"), errs.ErrStorage)
	}
	return true, nil
}

func (r *PokemonRepository) IsFavorite(ctx context.Context, id int) (bool, error) {
	ok, err := r.db.Favorites().Exists(ctx, id)
	if err != nil {
		return false, errs.Mark(errors.Wrap(err, "PokemonRepository.IsFavorite Exists"), errs.ErrStorage)
	}
	return ok, nil
}

func (r *PokemonRepository) Favorites(ctx context.Context) ([]pokemon.Pokemon, error) {
	favorites, err := r.db.Favorites().List(ctx)
	if err != nil {
		return nil, errs.Mark(errors.Wrap(err, "PokemonRepository.Favorites List"), errs.ErrStorage)
	}
	out := make([]pokemon.Pokemon, 0, len(favorites))
	for _, f := range favorites {
		out = append(out, f.ToPokemon())
	}
	return out, nil
}

// ResetCache drops the cached list and its remote keys together. Favorites and details stay.
func (r *PokemonRepository) ResetCache(ctx context.Context) error {
	err := r.db.WithTx(ctx, func(tx pokemon.Tx) error {
		if err := tx.RemoteKeys().Clear(ctx); err != nil {
			return errors.Wrap(err, "RemoteKeys.Clear")
		}
		if err := tx.Entities().Clear(ctx); err != nil {
			return errors.Wrap(err, "Entities.Clear")
		}
		return nil
	})
	if err != nil {
		return errs.Mark(errors.Wrap(err, "PokemonRepository.ResetCache WithTx"), errs.ErrStorage)
	}
	return nil
}
