package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-pokedex/auth"
	"github.com/jrsteele09/go-pokedex/internal/config"
	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/paging"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
	"github.com/jrsteele09/go-pokedex/repository"
	"github.com/jrsteele09/go-pokedex/storage/sqlite"
	"github.com/jrsteele09/go-pokedex/token"
	"github.com/jrsteele09/go-pokedex/token/issuer"
	"github.com/rs/zerolog/log"
)

type app struct {
	out    io.Writer
	store  *sqlite.Store
	tokens *token.Manager
	repo   *repository.PokemonRepository
}

func newApp(ctx context.Context, c config.Config, out io.Writer) (*app, error) {
	store, err := sqlite.Open(c.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	tokens := token.New(store.Sessions(), tokenEndpoint(c), token.WithDefaultExpiry(c.GetDefaultAccessTokenExpiry()))
	if err := tokens.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not restore the saved session")
	}

	api, err := pokeapi.NewClient(c.GetAPIBaseURL(), auth.NewClient(tokens, c.GetRequestTimeout()))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		out:    out,
		store:  store,
		tokens: tokens,
		repo: repository.NewPokemonRepository(store, api,
			paging.WithFetchSizes(c.GetInitialFetchSize(), c.GetFetchSize(), c.GetMaxOffset())),
	}, nil
}

// tokenEndpoint is the in-process issuer, or the configured OAuth2 token URL
func tokenEndpoint(c config.Config) token.Endpoint {
	if c.GetUseLocalIssuer() {
		return issuer.New(issuer.NewHMACSigner(c.GetSigningSecret()),
			issuer.WithTokenExpiry(c.GetDefaultAccessTokenExpiry(), c.GetDefaultRefreshTokenExpiry()))
	}
	return token.NewOAuth2Endpoint(c.GetTokenURL(), c.GetClientID(), c.GetClientSecret(),
		&http.Client{Timeout: c.GetRequestTimeout()})
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing store")
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: login <user> <password>", errUsage)
	}
	if err := a.tokens.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", args[0])
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.tokens.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sortFlag := fs.String("sort", string(pokemon.SortByNumber), "number or name")
	pages := fs.Int("pages", 1, "number of pages to show")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	sort, err := pokemon.ParseSortType(*sortFlag)
	if err != nil {
		return err
	}

	favorites, err := a.favoriteIDs(ctx)
	if err != nil {
		return err
	}

	pager := a.repo.Pager(sort)
	page, err := pager.Refresh(ctx)
	for shown := 1; ; shown++ {
		a.printPage(page, favorites)
		if err != nil {
			if !errs.Retryable(err) || len(page.Items) == 0 {
				return err
			}
			log.Warn().Err(err).Msg("Offline, showing cached Pokémon only")
			return nil
		}
		if shown >= *pages || page.NextKey == nil {
			return nil
		}
		page, err = pager.LoadNext(ctx, page.NextKey)
	}
}

func (a *app) favoriteIDs(ctx context.Context) (map[int]bool, error) {
	favorites, err := a.repo.Favorites(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[int]bool, len(favorites))
	for _, f := range favorites {
		ids[f.ID] = true
	}
	return ids, nil
}

func (a *app) printPage(page paging.Page, favorites map[int]bool) {
	for _, p := range page.Pokemon() {
		p.IsFavorite = favorites[p.ID]
		a.printPokemon(p)
	}
}

func (a *app) printPokemon(p pokemon.Pokemon) {
	star := " "
	if p.IsFavorite {
		star = "*"
	}
	fmt.Fprintf(a.out, "%s #%03d %s\n", star, p.ID, p.Name)
}

func (a *app) detail(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: detail <id|name>", errUsage)
	}
	d, err := a.repo.GetPokemonDetail(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "#%03d %s", d.ID, d.Name)
	if d.IsFavorite {
		fmt.Fprint(a.out, " *")
	}
	fmt.Fprintln(a.out)
	if len(d.Types) > 0 {
		fmt.Fprintf(a.out, "Types:     %s\n", strings.Join(d.Types, ", "))
	}
	fmt.Fprintf(a.out, "Height:    %.1f m\n", float64(d.Height)/10)
	fmt.Fprintf(a.out, "Weight:    %.1f kg\n", float64(d.Weight)/10)
	if len(d.Abilities) > 0 {
		fmt.Fprintf(a.out, "Abilities: %s\n", strings.Join(d.Abilities, ", "))
	}
	for _, s := range d.Stats {
		fmt.Fprintf(a.out, "  %-16s %3d\n", s.Name, s.Value)
	}
	if d.Description != "" {
		fmt.Fprintf(a.out, "\n%s\n", d.Description)
	}
	return nil
}

func (a *app) favorite(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: favorite <id>", errUsage)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: favorite id must be a positive number", errUsage)
	}
	on, err := a.repo.ToggleFavorite(ctx, id)
	if err != nil {
		return err
	}
	if on {
		fmt.Fprintf(a.out, "Added #%03d to favorites\n", id)
	} else {
		fmt.Fprintf(a.out, "Removed #%03d from favorites\n", id)
	}
	return nil
}

func (a *app) favorites(ctx context.Context) error {
	favorites, err := a.repo.Favorites(ctx)
	if err != nil {
		return err
	}
	if len(favorites) == 0 {
		fmt.Fprintln(a.out, "No favorites yet")
		return nil
	}
	for _, p := range favorites {
		a.printPokemon(p)
	}
	return nil
}

func (a *app) reset(ctx context.Context) error {
	if err := a.repo.ResetCache(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Cache cleared")
	return nil
}
