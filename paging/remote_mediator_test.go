package paging_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/internal/utils"
	"github.com/jrsteele09/go-pokedex/paging"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
	pokemonrepofake "github.com/jrsteele09/go-pokedex/pokemon/repofake"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves a fixed list; the Pokémon at index i has ID i+1
type fakeFetcher struct {
	mu      sync.Mutex
	names   []string
	err     error
	badURL  bool
	onFetch func()
	offsets []int
	limits  []int
}

func numberedNames(id int) string {
	return fmt.Sprintf("mon-%03d", id)
}

func newFetcher(n int, name func(id int) string) *fakeFetcher {
	f := &fakeFetcher{}
	for id := 1; id <= n; id++ {
		f.names = append(f.names, name(id))
	}
	return f
}

func (f *fakeFetcher) ListPokemon(_ context.Context, limit, offset int) (*pokeapi.ListResponse, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.limits = append(f.limits, limit)
	err, hook, badURL := f.err, f.onFetch, f.badURL
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}

	resp := &pokeapi.ListResponse{Count: len(f.names), Results: []pokeapi.NamedResource{}}
	for i := offset; i < len(f.names) && i < offset+limit; i++ {
		url := fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d/", i+1)
		if badURL {
			url = "https://pokeapi.co/api/v2/pokemon/"
		}
		resp.Results = append(resp.Results, pokeapi.NamedResource{Name: f.names[i], URL: url})
	}
	return resp, nil
}

func (f *fakeFetcher) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int{}, f.offsets...)
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type mediatorFixture struct {
	mediator *paging.RemoteMediator
	db       *pokemonrepofake.FakeDatabase
	fetcher  *fakeFetcher
}

func setupMediator(t *testing.T, n int, config paging.MediatorConfig) *mediatorFixture {
	t.Helper()
	db := pokemonrepofake.NewFakeDatabase()
	fetcher := newFetcher(n, numberedNames)
	return &mediatorFixture{
		mediator: paging.NewRemoteMediator(db, fetcher, config),
		db:       db,
		fetcher:  fetcher,
	}
}

func loadedState(entities []pokemon.Entity) paging.State {
	return paging.State{Pages: []paging.Page{{Items: entities}}}
}

var twentyAtATime = paging.MediatorConfig{InitialFetchSize: 20, FetchSize: 20, MaxOffset: 1020, PageSize: 20}

// TestRefreshThenAppendBracketsKeys tests two consecutive pages of 20
func TestRefreshThenAppendBracketsKeys(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)
	ctx := context.Background()

	result, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.NoError(t, err)
	require.False(t, result.EndOfPagination)

	firstPage, keys := f.db.Snapshot()
	require.Len(t, firstPage, 20)
	require.Len(t, keys, 20)

	result, err = f.mediator.Load(ctx, paging.LoadAppend, loadedState(firstPage))
	require.NoError(t, err)
	require.False(t, result.EndOfPagination)
	require.Equal(t, []int{0, 20}, f.fetcher.calls())

	entities, keys := f.db.Snapshot()
	require.Len(t, entities, 40)
	require.Len(t, keys, 40)
	for i, e := range entities {
		require.Equal(t, i+1, e.ID)
		require.Equal(t, fmt.Sprintf("Mon-%03d", e.ID), e.Name)
		require.Equal(t, pokemon.ImageURL(e.ID), e.ImageURL)
		require.Equal(t, i/20, e.Page)
	}
	for _, k := range keys {
		if k.PokemonID <= 20 {
			require.Nil(t, k.PrevKey)
			require.Equal(t, utils.Ptr(20), k.NextKey)
			continue
		}
		require.Equal(t, utils.Ptr(0), k.PrevKey)
		require.Equal(t, utils.Ptr(40), k.NextKey)
	}
}

func TestFetchSizes(t *testing.T) {
	f := setupMediator(t, 1000, paging.DefaultMediatorConfig(20))
	ctx := context.Background()

	_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.NoError(t, err)
	entities, _ := f.db.Snapshot()
	_, err = f.mediator.Load(ctx, paging.LoadAppend, loadedState(entities))
	require.NoError(t, err)

	require.Equal(t, []int{0, 150}, f.fetcher.calls())
	require.Equal(t, []int{150, 200}, f.fetcher.limits)
	entities, _ = f.db.Snapshot()
	require.Len(t, entities, 350)
	require.Equal(t, 150/20, entities[150].Page)
}

func TestPrependIsEndOfData(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)

	result, err := f.mediator.Load(context.Background(), paging.LoadPrepend, paging.State{})
	require.NoError(t, err)
	require.True(t, result.EndOfPagination)
	require.Empty(t, f.fetcher.calls())
}

// TestAppendPastNilNextKey tests that a key without a next cursor stops paging without a fetch
func TestAppendPastNilNextKey(t *testing.T) {
	f := setupMediator(t, 100, paging.MediatorConfig{InitialFetchSize: 20, FetchSize: 20, MaxOffset: 20, PageSize: 20})
	ctx := context.Background()

	_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.NoError(t, err)
	entities, _ := f.db.Snapshot()

	result, err := f.mediator.Load(ctx, paging.LoadAppend, loadedState(entities))
	require.NoError(t, err)
	require.True(t, result.EndOfPagination, "offset reached the maximum")

	entities, keys := f.db.Snapshot()
	require.Len(t, entities, 40)
	require.Nil(t, keys[39].NextKey)
	require.Equal(t, utils.Ptr(0), keys[39].PrevKey)

	calls := len(f.fetcher.calls())
	result, err = f.mediator.Load(ctx, paging.LoadAppend, loadedState(entities))
	require.NoError(t, err)
	require.True(t, result.EndOfPagination)
	require.Len(t, f.fetcher.calls(), calls)
}

func TestAppendForItemWithoutKey(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)

	result, err := f.mediator.Load(context.Background(), paging.LoadAppend,
		loadedState([]pokemon.Entity{{ID: 999, Name: "Stray"}}))
	require.NoError(t, err)
	require.True(t, result.EndOfPagination)
	require.Empty(t, f.fetcher.calls())
}

func TestAppendWithNothingLoadedIsFirstLoad(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)

	result, err := f.mediator.Load(context.Background(), paging.LoadAppend,
		paging.State{Pages: []paging.Page{{}, {Items: []pokemon.Entity{}}}})
	require.NoError(t, err)
	require.False(t, result.EndOfPagination)
	require.Equal(t, []int{0}, f.fetcher.calls())
}

func TestEmptyPageEndsPagination(t *testing.T) {
	f := setupMediator(t, 20, twentyAtATime)
	ctx := context.Background()

	_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.NoError(t, err)
	entities, _ := f.db.Snapshot()

	result, err := f.mediator.Load(ctx, paging.LoadAppend, loadedState(entities))
	require.NoError(t, err)
	require.True(t, result.EndOfPagination)
	require.Equal(t, []int{0, 20}, f.fetcher.calls())

	after, _ := f.db.Snapshot()
	require.Equal(t, entities, after)
}

// TestFailedTransactionWritesNothing tests that a page whose entity write fails leaves
// neither its entities nor its remote keys behind
func TestFailedTransactionWritesNothing(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)
	diskFull := errors.New("disk full")
	f.db.EntityUpsertErr = diskFull

	_, err := f.mediator.Load(context.Background(), paging.LoadRefresh, paging.State{})
	require.ErrorIs(t, err, diskFull)
	require.ErrorIs(t, err, errs.ErrStorage)

	var loadErr *paging.LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, paging.LoadRefresh, loadErr.LoadType)
	require.False(t, loadErr.Retryable())

	entities, keys := f.db.Snapshot()
	require.Empty(t, entities)
	require.Empty(t, keys)
	require.Zero(t, f.db.Commits())
}

func TestFailedTransactionKeepsPreviousPage(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)
	ctx := context.Background()

	_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.NoError(t, err)
	before, beforeKeys := f.db.Snapshot()

	f.db.EntityUpsertErr = errors.New("disk full")
	_, err = f.mediator.Load(ctx, paging.LoadAppend, loadedState(before))
	require.Error(t, err)

	after, afterKeys := f.db.Snapshot()
	require.Equal(t, before, after)
	require.Equal(t, beforeKeys, afterKeys)
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)
	f.fetcher.setErr(errs.Mark(errors.New("connection reset"), errs.ErrNetwork))

	_, err := f.mediator.Load(context.Background(), paging.LoadRefresh, paging.State{})
	var loadErr *paging.LoadError
	require.ErrorAs(t, err, &loadErr)
	require.True(t, loadErr.Retryable())
	require.ErrorIs(t, err, errs.ErrNetwork)
	require.Zero(t, f.db.Commits())
}

func TestMalformedResultIsProtocolError(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)
	f.fetcher.badURL = true

	_, err := f.mediator.Load(context.Background(), paging.LoadRefresh, paging.State{})
	require.ErrorIs(t, err, errs.ErrProtocol)
	require.Zero(t, f.db.Commits())
}

// TestCancelledLoadNeverEntersTransaction tests a cancellation that lands while the fetch is in flight
func TestCancelledLoadNeverEntersTransaction(t *testing.T) {
	f := setupMediator(t, 100, twentyAtATime)
	ctx, cancel := context.WithCancel(context.Background())
	f.fetcher.onFetch = cancel

	_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.db.Commits())
}

func TestConcurrentLoadsStayConsistent(t *testing.T) {
	f := setupMediator(t, 500, twentyAtATime)
	ctx := context.Background()
	_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
	require.NoError(t, err)
	first, _ := f.db.Snapshot()

	var wg sync.WaitGroup
	loadErrs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.mediator.Load(ctx, paging.LoadRefresh, paging.State{})
			loadErrs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.mediator.Load(ctx, paging.LoadAppend, loadedState(first))
			loadErrs <- err
		}()
	}
	wg.Wait()
	close(loadErrs)
	for err := range loadErrs {
		require.NoError(t, err)
	}

	entities, keys := f.db.Snapshot()
	require.Len(t, entities, 40)
	require.Len(t, keys, 40)
	for i := range entities {
		require.Equal(t, entities[i].ID, keys[i].PokemonID)
	}
}

func TestLoadTypeString(t *testing.T) {
	require.Equal(t, "refresh", paging.LoadRefresh.String())
	require.Equal(t, "prepend", paging.LoadPrepend.String())
	require.Equal(t, "append", paging.LoadAppend.String())
}
