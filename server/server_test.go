package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-pokedex/auth"
	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/jrsteele09/go-pokedex/paging"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/jrsteele09/go-pokedex/repository"
	"github.com/jrsteele09/go-pokedex/server"
	sessionrepofake "github.com/jrsteele09/go-pokedex/session/repofake"
	"github.com/jrsteele09/go-pokedex/storage/sqlite"
	"github.com/jrsteele09/go-pokedex/token"
	"github.com/jrsteele09/go-pokedex/token/issuer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "ash"
	testPassword = "pikachu"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	srv    *httptest.Server
	issuer *issuer.Issuer
	clock  *testClock
}

func setupTestFixture(t *testing.T, catalog *server.Catalog) *testFixture {
	t.Helper()
	clock := &testClock{now: time.Now()}
	iss := issuer.New(issuer.NewHMACSigner("dev-secret"), issuer.WithNowFunc(clock.Now))
	srv := httptest.NewServer(server.New(catalog, iss, server.WithEnv("test")))
	t.Cleanup(srv.Close)
	return &testFixture{srv: srv, issuer: iss, clock: clock}
}

func (f *testFixture) postToken(t *testing.T, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.srv.Client().PostForm(f.srv.URL+server.RouteOAuth2Token, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (f *testFixture) login(t *testing.T) *oauthmodel.TokenResponse {
	t.Helper()
	resp, err := f.issuer.Login(context.Background(), testUser, testPassword)
	require.NoError(t, err)
	return resp
}

func (f *testFixture) get(t *testing.T, path, accessToken string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestCatalog(t *testing.T) {
	c := server.DefaultCatalog()
	require.Equal(t, 151, c.Len())

	pikachu, ok := c.Lookup(" Pikachu ")
	require.True(t, ok)
	require.Equal(t, 25, pikachu.ID)

	mew, ok := c.Lookup("151")
	require.True(t, ok)
	require.Equal(t, "mew", mew.Name)

	_, ok = c.Lookup("152")
	require.False(t, ok)
	_, ok = c.Lookup("0")
	require.False(t, ok)

	require.Len(t, c.Page(140, 20), 11)
	require.Empty(t, c.Page(151, 20))
	require.Empty(t, c.Page(-1, 20))
}

func TestRoutes(t *testing.T) {
	srv := server.New(server.DefaultCatalog(), issuer.New(issuer.NewHMACSigner("dev-secret")))
	require.Equal(t, []string{
		"GET " + server.RouteHealth,
		"POST " + server.RouteOAuth2Token,
		"GET " + server.RouteAPIPokemonList,
		"GET " + server.RouteAPIPokemon,
		"GET " + server.RouteAPISpecies,
	}, srv.Routes())
}

// captureLog sends the global logger to a buffer for the rest of the test
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger, level := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
	return &buf
}

// TestRequestLogIncludesUser tests that authenticated requests are logged with the token subject
func TestRequestLogIncludesUser(t *testing.T) {
	iss := issuer.New(issuer.NewHMACSigner("dev-secret"))
	srv := server.New(server.DefaultCatalog(), iss)
	tokens, err := iss.Login(context.Background(), testUser, testPassword)
	require.NoError(t, err)
	buf := captureLog(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteAPIRoot+"/pokemon/25", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, testUser, entry["user"])
	require.EqualValues(t, http.StatusOK, entry["status"])

	buf.Reset()
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	var healthEntry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &healthEntry))
	require.NotContains(t, healthEntry, "user")
}

// TestTokenEndpoint tests both grants and the OAuth2 error codes
func TestTokenEndpoint(t *testing.T) {
	f := setupTestFixture(t, server.DefaultCatalog())

	resp, body := f.postToken(t, url.Values{"grant_type": {"password"}, "username": {testUser}, "password": {testPassword}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "bearer", body["token_type"])
	require.EqualValues(t, 3600, body["expires_in"])
	refreshToken, _ := body["refresh_token"].(string)
	require.NotEmpty(t, refreshToken)

	resp, body = f.postToken(t, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["access_token"])
	require.NotContains(t, body, "refresh_token")

	cases := []struct {
		name string
		form url.Values
		code string
	}{
		{"short password", url.Values{"grant_type": {"password"}, "username": {testUser}, "password": {"abc"}}, oauthmodel.ErrorCodeInvalidGrant},
		{"unknown refresh token", url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"nope"}}, oauthmodel.ErrorCodeInvalidGrant},
		{"missing password", url.Values{"grant_type": {"password"}, "username": {testUser}}, oauthmodel.ErrorCodeInvalidRequest},
		{"client credentials", url.Values{"grant_type": {"client_credentials"}}, oauthmodel.ErrorCodeUnsupportedGrantType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.postToken(t, tc.form)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, tc.code, body["error"])
		})
	}
}

// TestRequireAuth tests the API rejects missing, malformed, expired and revoked tokens
func TestRequireAuth(t *testing.T) {
	f := setupTestFixture(t, server.DefaultCatalog())
	tokens := f.login(t)

	resp, body := f.get(t, server.RouteAPIPokemonList, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, oauthmodel.ErrorCodeInvalidToken, body["error"])
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp, _ = f.get(t, server.RouteAPIPokemonList, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.get(t, server.RouteAPIPokemonList, tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f.clock.Advance(2 * time.Hour)
	resp, _ = f.get(t, server.RouteAPIPokemonList, tokens.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	fresh := f.login(t)
	require.NoError(t, f.issuer.RevokeAccessToken(fresh.AccessToken))
	resp, _ = f.get(t, server.RouteAPIPokemonList, fresh.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = f.get(t, server.RouteHealth, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 151, body["pokemon"])
}

// TestListPokemon tests the list shape, navigation links and parameter validation
func TestListPokemon(t *testing.T) {
	f := setupTestFixture(t, server.DefaultCatalog())
	accessToken := f.login(t).AccessToken

	resp, body := f.get(t, server.RouteAPIPokemonList+"?limit=2&offset=24", accessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 151, body["count"])
	require.Equal(t, f.srv.URL+"/api/v2/pokemon?limit=2&offset=26", body["next"])
	require.Equal(t, f.srv.URL+"/api/v2/pokemon?limit=2&offset=22", body["previous"])

	results, _ := body["results"].([]any)
	require.Len(t, results, 2)
	first, _ := results[0].(map[string]any)
	require.Equal(t, "pikachu", first["name"])
	id, err := pokeapi.NamedResource{URL: first["url"].(string)}.ID()
	require.NoError(t, err)
	require.Equal(t, 25, id)

	_, body = f.get(t, server.RouteAPIPokemonList+"?limit=10&offset=150", accessToken)
	require.Nil(t, body["next"])
	require.Len(t, body["results"], 1)

	resp, body = f.get(t, server.RouteAPIPokemonList+"?limit=ten", accessToken)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, oauthmodel.ErrorCodeInvalidRequest, body["error"])

	resp, _ = f.get(t, server.RouteAPIPokemonList+"?offset=-5", accessToken)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestRecoverMiddleware tests a panicking handler answers 500
func TestRecoverMiddleware(t *testing.T) {
	s := server.New(server.NewCatalog(nil), issuer.New(issuer.NewHMACSigner("x")))
	handler := server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, s.StdMiddleware()...)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), oauthmodel.ErrorCodeServerError)
}

type clientFixture struct {
	*testFixture
	manager *token.Manager
	api     *pokeapi.Client
}

// setupClientFixture wires the client side against the dev backend: OAuth2 endpoint, token
// manager and an authenticated pokeapi client sharing the backend's clock
func setupClientFixture(t *testing.T, catalog *server.Catalog) *clientFixture {
	t.Helper()
	f := setupTestFixture(t, catalog)
	endpoint := token.NewOAuth2Endpoint(f.srv.URL+server.RouteOAuth2Token, "pokedex-cli", "", f.srv.Client())
	manager := token.New(sessionrepofake.NewFakeSessionRepo(), endpoint, token.WithNowFunc(f.clock.Now))
	require.NoError(t, manager.Login(context.Background(), testUser, testPassword))

	httpClient := auth.NewClient(manager, 5*time.Second, auth.WithBase(f.srv.Client().Transport))
	api, err := pokeapi.NewClient(f.srv.URL+server.RouteAPIRoot, httpClient)
	require.NoError(t, err)
	return &clientFixture{testFixture: f, manager: manager, api: api}
}

// TestClientAgainstBackend tests detail and species through the authenticated client,
// including the proactive refresh once the access token has expired
func TestClientAgainstBackend(t *testing.T) {
	f := setupClientFixture(t, server.DefaultCatalog())
	ctx := context.Background()

	resp, err := f.api.GetPokemon(ctx, "Charizard")
	require.NoError(t, err)
	detail := resp.ToDetail(false, nil)
	require.Equal(t, 6, detail.ID)
	require.Equal(t, "Charizard", detail.Name)
	require.Equal(t, pokemon.ImageURL(6), detail.ImageURLs[0])

	first := f.manager.AccessToken()
	f.clock.Advance(2 * time.Hour)
	require.True(t, f.manager.IsExpired())

	species, err := f.api.GetSpecies(ctx, 6)
	require.NoError(t, err)
	require.Equal(t, "Charizard is entry 006 of the development Pokédex.", species.Description())
	require.NotEqual(t, first, f.manager.AccessToken())

	_, err = f.api.GetPokemon(ctx, "agumon")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

// TestRevokedTokenRecoversOnce tests a 401 on a revoked token refreshes once and replays
func TestRevokedTokenRecoversOnce(t *testing.T) {
	f := setupClientFixture(t, server.NewCatalog([]string{"bulbasaur", "ivysaur"}))
	ctx := context.Background()

	first := f.manager.AccessToken()
	require.NoError(t, f.issuer.RevokeAccessToken(first))

	var wg sync.WaitGroup
	errsCh := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.api.ListPokemon(ctx, 2, 0)
			errsCh <- err
		}()
	}
	wg.Wait()
	close(errsCh)
	for err := range errsCh {
		require.NoError(t, err)
	}
	require.NotEqual(t, first, f.manager.AccessToken())
	require.True(t, f.manager.HasSession())
}

// TestPagerAgainstBackend tests the full stack: SQLite cache, mediator and pager over the dev backend
func TestPagerAgainstBackend(t *testing.T) {
	f := setupClientFixture(t, server.DefaultCatalog())
	ctx := context.Background()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "pokedex.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	repo := repository.NewPokemonRepository(store, f.api, paging.WithFetchSizes(50, 40, 1020))

	var names []string
	for p, err := range repo.Pager(pokemon.SortByNumber).All(ctx) {
		require.NoError(t, err)
		names = append(names, p.Name)
	}
	require.Len(t, names, 151)
	require.Equal(t, "Bulbasaur", names[0])
	require.Equal(t, "Mew", names[150])

	count, err := store.Entities().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 151, count)

	key, err := store.RemoteKeys().GetFor(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, key)
	require.Nil(t, key.PrevKey)
	require.Equal(t, 50, *key.NextKey)

	key, err = store.RemoteKeys().GetFor(ctx, 151)
	require.NoError(t, err)
	require.NotNil(t, key)
	require.Equal(t, 109, *key.PrevKey)
	require.Equal(t, 151, *key.NextKey)

	byName, err := repo.Pager(pokemon.SortByName).Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "Abra", byName.Items[0].Name)

	on, err := repo.ToggleFavorite(ctx, 25)
	require.NoError(t, err)
	require.True(t, on)

	favorites, err := repo.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, "Pikachu", favorites[0].Name)
	require.Equal(t, pokemon.ImageURL(25), favorites[0].ImageURL)
}
