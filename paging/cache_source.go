package paging

import (
	"context"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/internal/utils"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/pkg/errors"
)

type LoadParams struct {
	// Key is the offset to read from; nil reads from the start
	Key      *int
	LoadSize int
}

// CacheSource serves pages from the entity cache only. It never touches the network.
type CacheSource struct {
	entities pokemon.EntityRepo
	sort     pokemon.SortType
}

func NewCacheSource(entities pokemon.EntityRepo, sort pokemon.SortType) *CacheSource {
	return &CacheSource{entities: entities, sort: sort}
}

func (s *CacheSource) Load(ctx context.Context, params LoadParams) (Page, error) {
	if params.LoadSize <= 0 {
		return Page{}, errs.Mark(errors.Errorf("load size %d", params.LoadSize), errs.ErrInvalidRequest)
	}
	offset := max(utils.Value(params.Key), 0)

	rows, err := s.entities.Page(ctx, s.sort, offset, params.LoadSize)
	if err != nil {
		return Page{}, errs.Mark(errors.Wrap(err, "CacheSource.Load Page"), errs.ErrStorage)
	}

	page := Page{Items: rows}
	if offset > 0 {
		page.PrevKey = utils.Ptr(max(0, offset-params.LoadSize))
	}
	if len(rows) > 0 && len(rows) >= params.LoadSize {
		page.NextKey = utils.Ptr(offset + len(rows))
	}
	return page, nil
}
