package pokeapi

import (
	"strings"

	"github.com/jrsteele09/go-pokedex/internal/utils"
	"github.com/jrsteele09/go-pokedex/pokemon"
)

type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ID parses the Pokémon ID from the trailing segment of the resource URL
func (r NamedResource) ID() (int, error) {
	return utils.TrailingID(r.URL)
}

// ListResponse is one page of GET /pokemon
type ListResponse struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

type PokemonResponse struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Height    int           `json:"height"`
	Weight    int           `json:"weight"`
	Sprites   Sprites       `json:"sprites"`
	Types     []TypeSlot    `json:"types"`
	Stats     []StatSlot    `json:"stats"`
	Abilities []AbilitySlot `json:"abilities"`
}

type Sprites struct {
	FrontDefault *string       `json:"front_default"`
	BackDefault  *string       `json:"back_default"`
	FrontShiny   *string       `json:"front_shiny"`
	BackShiny    *string       `json:"back_shiny"`
	Other        *OtherSprites `json:"other,omitempty"`
}

type OtherSprites struct {
	OfficialArtwork *Artwork `json:"official-artwork,omitempty"`
	Home            *Artwork `json:"home,omitempty"`
}

type Artwork struct {
	FrontDefault *string `json:"front_default"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type StatSlot struct {
	BaseStat int           `json:"base_stat"`
	Stat     NamedResource `json:"stat"`
}

type AbilitySlot struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
}

type SpeciesResponse struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	FlavorTextEntries []FlavorTextEntry `json:"flavor_text_entries"`
}

type FlavorTextEntry struct {
	FlavorText string        `json:"flavor_text"`
	Language   NamedResource `json:"language"`
}

// Description returns the first English flavor text with line and form feeds replaced by spaces
func (s *SpeciesResponse) Description() string {
	if s == nil {
		return ""
	}
	for _, entry := range s.FlavorTextEntries {
		if entry.Language.Name == "en" {
			return strings.NewReplacer("\n", " ", "\f", " ").Replace(entry.FlavorText)
		}
	}
	return ""
}

// ImageURLs lists the non-empty sprites, artwork first
func (s Sprites) ImageURLs() []string {
	candidates := []*string{}
	if s.Other != nil {
		if s.Other.OfficialArtwork != nil {
			candidates = append(candidates, s.Other.OfficialArtwork.FrontDefault)
		}
		if s.Other.Home != nil {
			candidates = append(candidates, s.Other.Home.FrontDefault)
		}
	}
	candidates = append(candidates, s.FrontDefault, s.BackDefault, s.FrontShiny, s.BackShiny)

	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if v := utils.Value(c); v != "" {
			urls = append(urls, v)
		}
	}
	return urls
}

// ToEntity maps a list result to a cache row tagged with page
func (r NamedResource) ToEntity(page int) (pokemon.Entity, error) {
	id, err := r.ID()
	if err != nil {
		return pokemon.Entity{}, err
	}
	return pokemon.Entity{
		ID:       id,
		Name:     utils.Capitalize(r.Name),
		ImageURL: pokemon.ImageURL(id),
		Page:     page,
	}, nil
}

// ToDetail maps a detail response; species may be nil.
func (p *PokemonResponse) ToDetail(isFavorite bool, species *SpeciesResponse) *pokemon.Detail {
	d := &pokemon.Detail{
		ID:          p.ID,
		Name:        utils.Capitalize(p.Name),
		ImageURLs:   p.Sprites.ImageURLs(),
		Types:       make([]string, 0, len(p.Types)),
		Stats:       make([]pokemon.Stat, 0, len(p.Stats)),
		Abilities:   make([]string, 0, len(p.Abilities)),
		Weight:      p.Weight,
		Height:      p.Height,
		Description: species.Description(),
		IsFavorite:  isFavorite,
	}
	for _, t := range p.Types {
		d.Types = append(d.Types, t.Type.Name)
	}
	for _, s := range p.Stats {
		d.Stats = append(d.Stats, pokemon.Stat{Name: s.Stat.Name, Value: s.BaseStat})
	}
	for _, a := range p.Abilities {
		d.Abilities = append(d.Abilities, a.Ability.Name)
	}
	return d
}
