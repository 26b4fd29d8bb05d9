package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/jrsteele09/go-pokedex/pokeapi"
	"github.com/jrsteele09/go-pokedex/pokemon"
)

const (
	defaultListLimit = 20
	spriteURLFormat  = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png"
)

// ListPokemon serves GET /pokemon?limit&offset in the public API's shape
func (s *Server) ListPokemon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", defaultListLimit)
		if err != nil || limit < 0 {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil || offset < 0 {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}

		base := baseURL(r)
		resp := pokeapi.ListResponse{
			Count:   s.catalog.Len(),
			Results: []pokeapi.NamedResource{},
		}
		for _, e := range s.catalog.Page(offset, limit) {
			resp.Results = append(resp.Results, pokeapi.NamedResource{
				Name: e.Name,
				URL:  fmt.Sprintf("%s/pokemon/%d/", base, e.ID),
			})
		}
		if limit > 0 && offset+limit < s.catalog.Len() {
			resp.Next = listURL(base, limit, offset+limit)
		}
		if offset > 0 {
			resp.Previous = listURL(base, limit, max(0, offset-limit))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// GetPokemon serves GET /pokemon/{idOrName}
func (s *Server) GetPokemon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := s.catalog.Lookup(r.PathValue("idOrName"))
		if !ok {
			writeJSONError(w, "not_found", "no such pokemon", http.StatusNotFound)
			return
		}

		artwork := pokemon.ImageURL(entry.ID)
		sprite := fmt.Sprintf(spriteURLFormat, entry.ID)
		writeJSON(w, http.StatusOK, pokeapi.PokemonResponse{
			ID:     entry.ID,
			Name:   entry.Name,
			Height: 3 + entry.ID%17,
			Weight: 10 * entry.ID,
			Sprites: pokeapi.Sprites{
				FrontDefault: &sprite,
				Other: &pokeapi.OtherSprites{
					OfficialArtwork: &pokeapi.Artwork{FrontDefault: &artwork},
				},
			},
			Types: []pokeapi.TypeSlot{},
			Stats: []pokeapi.StatSlot{
				{BaseStat: 40 + entry.ID%60, Stat: pokeapi.NamedResource{Name: "hp"}},
				{BaseStat: 30 + entry.ID%90, Stat: pokeapi.NamedResource{Name: "speed"}},
			},
			Abilities: []pokeapi.AbilitySlot{},
		})
	}
}

// GetSpecies serves GET /pokemon-species/{id}
func (s *Server) GetSpecies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "species id must be numeric", http.StatusBadRequest)
			return
		}
		entry, ok := s.catalog.Lookup(strconv.Itoa(id))
		if !ok {
			writeJSONError(w, "not_found", "no such species", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, pokeapi.SpeciesResponse{
			ID:   entry.ID,
			Name: entry.Name,
			FlavorTextEntries: []pokeapi.FlavorTextEntry{
				{FlavorText: entry.Description(), Language: pokeapi.NamedResource{Name: "en"}},
			},
		})
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func listURL(base string, limit, offset int) *string {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	u := base + "/pokemon?" + query.Encode()
	return &u
}
