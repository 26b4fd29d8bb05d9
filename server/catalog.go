package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-pokedex/internal/utils"
)

// Entry is one Pokémon served by the dev backend; its ID is its position in the catalog
type Entry struct {
	ID   int
	Name string
}

// Description is the flavor text served for the entry's species
func (e Entry) Description() string {
	return fmt.Sprintf("%s is entry %03d\nof the\fdevelopment Pokédex.", utils.Capitalize(e.Name), e.ID)
}

// Catalog is an ordered, read-only list of Pokémon
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// NewCatalog numbers names from 1 in the given order
func NewCatalog(names []string) *Catalog {
	c := &Catalog{
		entries: make([]Entry, 0, len(names)),
		byName:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		c.entries = append(c.entries, Entry{ID: i + 1, Name: name})
		c.byName[name] = i
	}
	return c
}

// DefaultCatalog is the first generation
func DefaultCatalog() *Catalog {
	return NewCatalog(generationOne)
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Page returns up to limit entries starting at offset
func (c *Catalog) Page(offset, limit int) []Entry {
	if offset < 0 || limit <= 0 || offset >= len(c.entries) {
		return []Entry{}
	}
	end := min(offset+limit, len(c.entries))
	return append([]Entry{}, c.entries[offset:end]...)
}

// Lookup finds an entry by ID or by case-insensitive name
func (c *Catalog) Lookup(idOrName string) (Entry, bool) {
	key := strings.ToLower(strings.TrimSpace(idOrName))
	if id, err := strconv.Atoi(key); err == nil {
		if id < 1 || id > len(c.entries) {
			return Entry{}, false
		}
		return c.entries[id-1], true
	}
	i, ok := c.byName[key]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

var generationOne = []string{
	"bulbasaur", "ivysaur", "venusaur", "charmander", "charmeleon", "charizard",
	"squirtle", "wartortle", "blastoise", "caterpie", "metapod", "butterfree",
	"weedle", "kakuna", "beedrill", "pidgey", "pidgeotto", "pidgeot",
	"rattata", "raticate", "spearow", "fearow", "ekans", "arbok",
	"pikachu", "raichu", "sandshrew", "sandslash", "nidoran-f", "nidorina",
	"nidoqueen", "nidoran-m", "nidorino", "nidoking", "clefairy", "clefable",
	"vulpix", "ninetales", "jigglypuff", "wigglytuff", "zubat", "golbat",
	"oddish", "gloom", "vileplume", "paras", "parasect", "venonat",
	"venomoth", "diglett", "dugtrio", "meowth", "persian", "psyduck",
	"golduck", "mankey", "primeape", "growlithe", "arcanine", "poliwag",
	"poliwhirl", "poliwrath", "abra", "kadabra", "alakazam", "machop",
	"machoke", "machamp", "bellsprout", "weepinbell", "victreebel", "tentacool",
	"tentacruel", "geodude", "graveler", "golem", "ponyta", "rapidash",
	"slowpoke", "slowbro", "magnemite", "magneton", "farfetchd", "doduo",
	"dodrio", "seel", "dewgong", "grimer", "muk", "shellder",
	"cloyster", "gastly", "haunter", "gengar", "onix", "drowzee",
	"hypno", "krabby", "kingler", "voltorb", "electrode", "exeggcute",
	"exeggutor", "cubone", "marowak", "hitmonlee", "hitmonchan", "lickitung",
	"koffing", "weezing", "rhyhorn", "rhydon", "chansey", "tangela",
	"kangaskhan", "horsea", "seadra", "goldeen", "seaking", "staryu",
	"starmie", "mr-mime", "scyther", "jynx", "electabuzz", "magmar",
	"pinsir", "tauros", "magikarp", "gyarados", "lapras", "ditto",
	"eevee", "vaporeon", "jolteon", "flareon", "porygon", "omanyte",
	"omastar", "kabuto", "kabutops", "aerodactyl", "snorlax", "articuno",
	"zapdos", "moltres", "dratini", "dragonair", "dragonite", "mewtwo",
	"mew",
}
