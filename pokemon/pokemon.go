package pokemon

import (
	"fmt"
	"strings"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
)

type SortType string

const (
	SortByNumber SortType = "number"
	SortByName   SortType = "name"
)

// ParseSortType accepts "number" or "name", case-insensitively. Empty means by number.
func ParseSortType(s string) (SortType, error) {
	switch SortType(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByNumber:
		return SortByNumber, nil
	case SortByName:
		return SortByName, nil
	}
	return "", errs.Wrapf(errs.ErrInvalidRequest, "unknown sort order %q", s)
}

const artworkURLFormat = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/%d.png"

// ImageURL returns the official artwork sprite URL for a Pokémon ID
func ImageURL(id int) string {
	return fmt.Sprintf(artworkURLFormat, id)
}

// Pokemon is a list record as shown to the user
type Pokemon struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	IsFavorite bool   `json:"isFavorite"`
}

// Entity is a cached list row. Page is the page index the row was fetched under.
type Entity struct {
	ID       int
	Name     string
	ImageURL string
	Page     int
}

func (e Entity) ToPokemon() Pokemon {
	return Pokemon{ID: e.ID, Name: e.Name, ImageURL: e.ImageURL}
}

// RemoteKey bookmarks the offsets either side of the page a Pokémon was fetched on.
// NextKey is nil when that page was the last one.
type RemoteKey struct {
	PokemonID int
	PrevKey   *int
	NextKey   *int
}

type Stat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Detail struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	ImageURLs   []string `json:"imageUrls"`
	Types       []string `json:"types"`
	Stats       []Stat   `json:"stats"`
	Abilities   []string `json:"abilities"`
	Weight      int      `json:"weight"` // hectograms
	Height      int      `json:"height"` // decimetres
	Description string   `json:"description"`
	IsFavorite  bool     `json:"isFavorite"`
}

// Favorite returns the favorite marker for this detail, using the first image as its thumbnail
func (d *Detail) Favorite() Favorite {
	f := Favorite{ID: d.ID, Name: d.Name}
	if len(d.ImageURLs) > 0 {
		f.ImageURL = d.ImageURLs[0]
	}
	return f
}

type Favorite struct {
	ID       int
	Name     string
	ImageURL string
}

func (f Favorite) ToPokemon() Pokemon {
	return Pokemon{ID: f.ID, Name: f.Name, ImageURL: f.ImageURL, IsFavorite: true}
}
