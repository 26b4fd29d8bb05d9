package paging

import (
	"context"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/internal/utils"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInitialFetchSize = 150
	DefaultFetchSize        = 200
	DefaultMaxOffset        = 1020
)

// Fetcher reads one page of the remote list
type Fetcher interface {
	ListPokemon(ctx context.Context, limit, offset int) (*pokeapi.ListResponse, error)
}

var _ Fetcher = (*pokeapi.Client)(nil)

type MediatorConfig struct {
	// InitialFetchSize is the page size of the fetch at offset zero
	InitialFetchSize int
	FetchSize        int
	// MaxOffset ends pagination once a fetch starts at or beyond it
	MaxOffset int
	// PageSize is used to derive the page tag of cached rows
	PageSize int
}

func DefaultMediatorConfig(pageSize int) MediatorConfig {
	return MediatorConfig{
		InitialFetchSize: DefaultInitialFetchSize,
		FetchSize:        DefaultFetchSize,
		MaxOffset:        DefaultMaxOffset,
		PageSize:         pageSize,
	}
}

// RemoteMediator fetches list pages from the network and merges each page, remote keys and
// entities together, into the cache in a single transaction.
type RemoteMediator struct {
	db      pokemon.Database
	fetcher Fetcher
	config  MediatorConfig
}

func NewRemoteMediator(db pokemon.Database, fetcher Fetcher, config MediatorConfig) *RemoteMediator {
	defaults := DefaultMediatorConfig(config.PageSize)
	if config.InitialFetchSize <= 0 {
		config.InitialFetchSize = defaults.InitialFetchSize
	}
	if config.FetchSize <= 0 {
		config.FetchSize = defaults.FetchSize
	}
	if config.MaxOffset <= 0 {
		config.MaxOffset = defaults.MaxOffset
	}
	if config.PageSize <= 0 {
		config.PageSize = 1
	}
	return &RemoteMediator{db: db, fetcher: fetcher, config: config}
}

// Load runs one load. Failures are returned as *LoadError.
func (m *RemoteMediator) Load(ctx context.Context, loadType LoadType, state State) (MediatorResult, error) {
	var offset int
	switch loadType {
	case LoadRefresh:
		offset = 0
	case LoadPrepend:
		return MediatorResult{EndOfPagination: true}, nil
	case LoadAppend:
		last := state.LastItem()
		if last == nil {
			// Nothing loaded yet: the first load
			break
		}
		key, err := m.db.RemoteKeys().GetFor(ctx, last.ID)
		if err != nil {
			return MediatorResult{}, &LoadError{LoadType: loadType, Err: errs.Mark(errors.Wrap(err, "RemoteKeys.GetFor"), errs.ErrStorage)}
		}
		if key == nil || key.NextKey == nil {
			log.Debug().Int("pokemonId", last.ID).Bool("hasKey", key != nil).Msg("Append reached end of pagination")
			return MediatorResult{EndOfPagination: true}, nil
		}
		offset = *key.NextKey
	default:
		return MediatorResult{}, &LoadError{LoadType: loadType, Err: errs.ErrUnsupported}
	}

	end, err := m.fetchAndMerge(ctx, offset)
	if err != nil {
		return MediatorResult{}, &LoadError{LoadType: loadType, Err: err}
	}
	return MediatorResult{EndOfPagination: end}, nil
}

func (m *RemoteMediator) fetchAndMerge(ctx context.Context, offset int) (bool, error) {
	limit := m.config.FetchSize
	if offset == 0 {
		limit = m.config.InitialFetchSize
	}

	resp, err := m.fetcher.ListPokemon(ctx, limit, offset)
	if err != nil {
		return false, errors.Wrap(err, "RemoteMediator.fetchAndMerge ListPokemon")
	}

	results := resp.Results
	end := len(results) == 0 || offset >= m.config.MaxOffset

	var prevKey, nextKey *int
	if offset != 0 {
		prevKey = utils.Ptr(offset - len(results))
	}
	if !end {
		nextKey = utils.Ptr(offset + len(results))
	}

	page := offset / m.config.PageSize
	keys := make([]pokemon.RemoteKey, 0, len(results))
	entities := make([]pokemon.Entity, 0, len(results))
	for _, r := range results {
		entity, err := r.ToEntity(page)
		if err != nil {
			return false, errs.Mark(errors.Wrapf(err, "list result %q", r.Name), errs.ErrProtocol)
		}
		keys = append(keys, pokemon.RemoteKey{PokemonID: entity.ID, PrevKey: prevKey, NextKey: nextKey})
		entities = append(entities, entity)
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	err = m.db.WithTx(ctx, func(tx pokemon.Tx) error {
		if err := tx.RemoteKeys().UpsertAll(ctx, keys); err != nil {
			return errors.Wrap(err, "RemoteKeys.UpsertAll")
		}
		if err := tx.Entities().UpsertAll(ctx, entities); err != nil {
			return errors.Wrap(err, "Entities.UpsertAll")
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, errs.Mark(errors.Wrap(err, "RemoteMediator.fetchAndMerge WithTx"), errs.ErrStorage)
	}

	log.Debug().Int("offset", offset).Int("count", len(results)).Bool("end", end).Msg("Merged remote page")
	return end, nil
}
