package paging

import (
	"context"
	"iter"
	"sync"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/internal/utils"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Config struct {
	PageSize        int
	InitialLoadSize int
}

// ConfigFor returns the page sizes used for a sort order
func ConfigFor(sort pokemon.SortType) Config {
	if sort == pokemon.SortByName {
		return Config{PageSize: 50, InitialLoadSize: 150}
	}
	return Config{PageSize: 20, InitialLoadSize: 40}
}

type pagerOptions struct {
	config   Config
	mediator MediatorConfig
}

type PagerOption func(*pagerOptions)

func WithConfig(config Config) PagerOption {
	return func(o *pagerOptions) {
		o.config = config
	}
}

// WithFetchSizes overrides the network page sizes and the offset pagination stops at
func WithFetchSizes(initial, fetch, maxOffset int) PagerOption {
	return func(o *pagerOptions) {
		o.mediator.InitialFetchSize = initial
		o.mediator.FetchSize = fetch
		o.mediator.MaxOffset = maxOffset
	}
}

// Pager is a pull-based paginator over the cache. Refresh reloads from the network, LoadNext
// reads the next window from the cache and appends from the network once the cache runs out.
// Calls on one Pager are serialised.
type Pager struct {
	lock     sync.Mutex
	sort     pokemon.SortType
	config   Config
	entities pokemon.EntityRepo
	source   *CacheSource
	mediator *RemoteMediator

	window          []Page
	endOfPagination bool
}

func NewPager(db pokemon.Database, fetcher Fetcher, sort pokemon.SortType, options ...PagerOption) *Pager {
	opts := pagerOptions{config: ConfigFor(sort)}
	for _, opt := range options {
		opt(&opts)
	}
	opts.mediator.PageSize = opts.config.PageSize

	return &Pager{
		sort:     sort,
		config:   opts.config,
		entities: db.Entities(),
		source:   NewCacheSource(db.Entities(), sort),
		mediator: NewRemoteMediator(db, fetcher, opts.mediator),
	}
}

func (p *Pager) Config() Config {
	return p.config
}

// Refresh reloads the first page from the network and returns the first cached window.
// For name order every remaining remote page is appended first, so names arrive in order.
// When the network load fails the cached window is still returned, together with the error.
func (p *Pager) Refresh(ctx context.Context) (Page, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.window = nil
	p.endOfPagination = false

	result, loadErr := p.mediator.Load(ctx, LoadRefresh, State{})
	if loadErr == nil {
		p.endOfPagination = result.EndOfPagination
		if p.sort == pokemon.SortByName {
			loadErr = p.drainAppends(ctx)
		}
	}
	if loadErr != nil {
		log.Warn().Err(loadErr).Str("sort", string(p.sort)).Msg("Refresh failed, serving cached data")
	}

	page, err := p.source.Load(ctx, LoadParams{LoadSize: p.config.InitialLoadSize})
	if err != nil {
		if loadErr != nil {
			return Page{}, loadErr
		}
		return Page{}, errors.Wrap(err, "Pager.Refresh Load")
	}
	p.window = append(p.window, page)
	return page, loadErr
}

// LoadNext returns the window at cursor. A nil cursor returns an empty terminal page.
// Once the cache is exhausted and the remote list is not, one append is run and the window
// read again; its NextKey is only set when the append grew the cache.
func (p *Pager) LoadNext(ctx context.Context, cursor *int) (Page, error) {
	if cursor == nil {
		return Page{}, nil
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	params := LoadParams{Key: cursor, LoadSize: p.config.PageSize}
	page, err := p.source.Load(ctx, params)
	if err != nil {
		return Page{}, errors.Wrap(err, "Pager.LoadNext Load")
	}
	if page.NextKey != nil || p.endOfPagination {
		p.window = append(p.window, page)
		return page, nil
	}

	before, err := p.entities.Count(ctx)
	if err != nil {
		return page, errs.Mark(errors.Wrap(err, "Pager.LoadNext Count"), errs.ErrStorage)
	}

	state, err := p.mediatorState(ctx, page)
	if err != nil {
		return page, err
	}
	result, err := p.mediator.Load(ctx, LoadAppend, state)
	if err != nil {
		p.window = append(p.window, page)
		return page, err
	}
	p.endOfPagination = result.EndOfPagination

	reread, err := p.source.Load(ctx, params)
	if err != nil {
		return page, errors.Wrap(err, "Pager.LoadNext Load")
	}
	after, err := p.entities.Count(ctx)
	if err != nil {
		return page, errs.Mark(errors.Wrap(err, "Pager.LoadNext Count"), errs.ErrStorage)
	}

	next := *cursor + len(reread.Items)
	switch {
	case next < after:
		reread.NextKey = utils.Ptr(next)
	case after > before && !p.endOfPagination:
		reread.NextKey = utils.Ptr(next)
	default:
		reread.NextKey = nil
	}
	p.window = append(p.window, reread)
	return reread, nil
}

// drainAppends appends until the remote list is exhausted. Rows fetched later would sort
// anywhere in name order, so name order is only served once the cache holds the whole list.
func (p *Pager) drainAppends(ctx context.Context) error {
	before := -1
	for !p.endOfPagination {
		count, err := p.entities.Count(ctx)
		if err != nil {
			return errs.Mark(errors.Wrap(err, "Pager.drainAppends Count"), errs.ErrStorage)
		}
		if count == before {
			// The last append added nothing new
			return nil
		}
		before = count

		state, err := p.mediatorState(ctx, Page{})
		if err != nil {
			return err
		}
		result, err := p.mediator.Load(ctx, LoadAppend, state)
		if err != nil {
			return err
		}
		p.endOfPagination = result.EndOfPagination
	}
	return nil
}

// mediatorState is the loaded window plus the page just read. Name order does not follow fetch
// order, so for it the highest numbered cached row stands in as the last loaded item.
func (p *Pager) mediatorState(ctx context.Context, current Page) (State, error) {
	if p.sort != pokemon.SortByName {
		return State{Pages: append(append([]Page{}, p.window...), current)}, nil
	}
	count, err := p.entities.Count(ctx)
	if err != nil {
		return State{}, errs.Mark(errors.Wrap(err, "Pager.mediatorState Count"), errs.ErrStorage)
	}
	if count == 0 {
		return State{}, nil
	}
	frontier, err := p.entities.Page(ctx, pokemon.SortByNumber, count-1, 1)
	if err != nil {
		return State{}, errs.Mark(errors.Wrap(err, "Pager.mediatorState Page"), errs.ErrStorage)
	}
	return State{Pages: []Page{{Items: frontier}}}, nil
}

// All is the sequence of every Pokémon in sort order, starting with a refresh. Reads from the
// cache are lazy. Network loads are lazy for number order only: name order fetches the whole
// remote list during the refresh. Load errors are yielded after the cached items they did not prevent; iteration continues
// while there is a next window.
func (p *Pager) All(ctx context.Context) iter.Seq2[pokemon.Pokemon, error] {
	return func(yield func(pokemon.Pokemon, error) bool) {
		page, err := p.Refresh(ctx)
		for {
			for _, e := range page.Items {
				if !yield(e.ToPokemon(), nil) {
					return
				}
			}
			if err != nil && !yield(pokemon.Pokemon{}, err) {
				return
			}
			if page.NextKey == nil || ctx.Err() != nil {
				return
			}
			page, err = p.LoadNext(ctx, page.NextKey)
		}
	}
}
