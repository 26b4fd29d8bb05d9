package pokeapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/stretchr/testify/require"
)

const pikachuJSON = `{
	"id": 25, "name": "pikachu", "height": 4, "weight": 60,
	"sprites": {
		"front_default": "front.png", "back_default": null, "front_shiny": "", "back_shiny": "shiny-back.png",
		"other": {"official-artwork": {"front_default": "artwork.png"}, "home": {"front_default": null}}
	},
	"types": [{"slot": 1, "type": {"name": "electric", "url": "https://pokeapi.co/api/v2/type/13/"}}],
	"stats": [{"base_stat": 35, "stat": {"name": "hp"}}, {"base_stat": 90, "stat": {"name": "speed"}}],
	"abilities": [{"ability": {"name": "static"}, "is_hidden": false}, {"ability": {"name": "lightning-rod"}, "is_hidden": true}]
}`

const speciesJSON = `{
	"id": 25, "name": "pikachu",
	"flavor_text_entries": [
		{"flavor_text": "ピカチュウ", "language": {"name": "ja"}},
		{"flavor_text": "When several of\nthese POKéMON\fgather.", "language": {"name": "en"}}
	]
}`

func newAPIServer(t *testing.T) (*httptest.Server, *pokeapi.Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/pokemon", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "2" || r.URL.Query().Get("offset") != "24" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"count": 1302, "next": "n", "previous": null, "results": [
			{"name": "charizard", "url": "https://pokeapi.co/api/v2/pokemon/6/"},
			{"name": "squirtle", "url": "https://pokeapi.co/api/v2/pokemon/7/"}]}`))
	})
	mux.HandleFunc("GET /api/v2/pokemon/pikachu", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pikachuJSON))
	})
	mux.HandleFunc("GET /api/v2/pokemon-species/25", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(speciesJSON))
	})
	mux.HandleFunc("GET /api/v2/pokemon/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /api/v2/pokemon/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("GET /api/v2/pokemon/garbled", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "twenty-five"`))
	})
	mux.HandleFunc("GET /api/v2/pokemon/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := pokeapi.NewClient(srv.URL+"/api/v2", srv.Client())
	require.NoError(t, err)
	return srv, client
}

func TestListPokemon(t *testing.T) {
	_, client := newAPIServer(t)

	resp, err := client.ListPokemon(context.Background(), 2, 24)
	require.NoError(t, err)
	require.Equal(t, 1302, resp.Count)
	require.Len(t, resp.Results, 2)

	entity, err := resp.Results[1].ToEntity(1)
	require.NoError(t, err)
	require.Equal(t, pokemon.Entity{ID: 7, Name: "Squirtle", ImageURL: pokemon.ImageURL(7), Page: 1}, entity)
}

// TestGetPokemonDetail tests the detail and species mapping
func TestGetPokemonDetail(t *testing.T) {
	_, client := newAPIServer(t)
	ctx := context.Background()

	resp, err := client.GetPokemon(ctx, " Pikachu ")
	require.NoError(t, err)
	species, err := client.GetSpecies(ctx, resp.ID)
	require.NoError(t, err)

	detail := resp.ToDetail(true, species)
	require.Equal(t, &pokemon.Detail{
		ID:          25,
		Name:        "Pikachu",
		ImageURLs:   []string{"artwork.png", "front.png", "shiny-back.png"},
		Types:       []string{"electric"},
		Stats:       []pokemon.Stat{{Name: "hp", Value: 35}, {Name: "speed", Value: 90}},
		Abilities:   []string{"static", "lightning-rod"},
		Weight:      60,
		Height:      4,
		Description: "When several of these POKéMON gather.",
		IsFavorite:  true,
	}, detail)

	require.Empty(t, resp.ToDetail(false, nil).Description)
}

func TestErrorClassification(t *testing.T) {
	_, client := newAPIServer(t)
	ctx := context.Background()

	_, err := client.GetPokemon(ctx, "private")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.False(t, errs.Retryable(err))

	_, err = client.GetPokemon(ctx, "missingno")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.False(t, errs.Retryable(err))

	_, err = client.GetPokemon(ctx, "broken")
	require.ErrorIs(t, err, errs.ErrProtocol)
	require.True(t, errs.Retryable(err))
	var statusErr *pokeapi.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)

	_, err = client.GetPokemon(ctx, "garbled")
	require.ErrorIs(t, err, errs.ErrProtocol)

	_, err = client.GetPokemon(ctx, "  ")
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestNetworkErrors(t *testing.T) {
	srv, client := newAPIServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.GetPokemon(ctx, "slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	timeoutClient, err := pokeapi.NewClient(srv.URL+"/api/v2/", &http.Client{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	_, err = timeoutClient.GetPokemon(context.Background(), "slow")
	require.ErrorIs(t, err, errs.ErrNetwork)
	require.True(t, errs.Retryable(err))

	srv.Close()
	_, err = client.ListPokemon(context.Background(), 2, 24)
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := pokeapi.NewClient("not a url", nil)
	require.Error(t, err)
}
