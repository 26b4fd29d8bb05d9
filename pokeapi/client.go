package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/pkg/errors"
)

// Client reads the PokéAPI. Authentication, if any, is the job of the http.Client's transport.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// StatusError is a non-2xx answer from the API
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.Path, e.StatusCode)
}

// NewClient creates a client for baseURL, e.g. "https://pokeapi.co/api/v2/".
// A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "pokeapi.NewClient url.Parse")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*ListResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var resp ListResponse
	if err := c.getJSON(ctx, "pokemon", query, &resp); err != nil {
		return nil, errors.Wrap(err, "Client.ListPokemon getJSON")
	}
	return &resp, nil
}

func (c *Client) GetPokemon(ctx context.Context, idOrName string) (*PokemonResponse, error) {
	idOrName = strings.ToLower(strings.TrimSpace(idOrName))
	if idOrName == "" {
		return nil, errs.Mark(errors.New("empty pokemon id or name"), errs.ErrInvalidRequest)
	}
	var resp PokemonResponse
	if err := c.getJSON(ctx, "pokemon/"+url.PathEscape(idOrName), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "Client.GetPokemon getJSON")
	}
	return &resp, nil
}

func (c *Client) GetSpecies(ctx context.Context, id int) (*SpeciesResponse, error) {
	var resp SpeciesResponse
	if err := c.getJSON(ctx, "pokemon-species/"+strconv.Itoa(id), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "Client.GetSpecies getJSON")
	}
	return &resp, nil
}

// getJSON classifies failures: no answer is ErrNetwork, 401 is ErrUnauthorized, 404 is
// ErrNotFound, any other status or an undecodable body is ErrProtocol. A cancelled context is
// returned as is.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return errs.Mark(err, errs.ErrInvalidRequest)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Mark(err, errs.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		statusErr := &StatusError{Path: endpoint.Path, StatusCode: resp.StatusCode}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errs.Mark(statusErr, errs.ErrUnauthorized)
		case http.StatusNotFound:
			return errs.Mark(statusErr, errs.ErrNotFound)
		}
		return errs.Mark(statusErr, errs.ErrProtocol)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Mark(errors.Wrap(err, "decode response"), errs.ErrProtocol)
	}
	return nil
}
