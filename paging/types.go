package paging

import (
	"fmt"

	errs "github.com/jrsteele09/go-pokedex/internal/errors"
	"github.com/jrsteele09/go-pokedex/pokemon"
)

type LoadType int

const (
	// LoadRefresh reloads from offset zero
	LoadRefresh LoadType = iota
	// LoadPrepend loads the page before the window; always end of data
	LoadPrepend
	// LoadAppend loads the page after the last loaded item
	LoadAppend
)

func (l LoadType) String() string {
	switch l {
	case LoadRefresh:
		return "refresh"
	case LoadPrepend:
		return "prepend"
	case LoadAppend:
		return "append"
	}
	return fmt.Sprintf("LoadType(%d)", int(l))
}

type MediatorResult struct {
	EndOfPagination bool
}

// Page is a window of cached rows. PrevKey and NextKey are offsets into the cache ordering;
// a nil NextKey means nothing follows this window.
type Page struct {
	Items   []pokemon.Entity
	PrevKey *int
	NextKey *int
}

func (p Page) Pokemon() []pokemon.Pokemon {
	out := make([]pokemon.Pokemon, 0, len(p.Items))
	for _, e := range p.Items {
		out = append(out, e.ToPokemon())
	}
	return out
}

// State is the loaded window a mediator load continues from
type State struct {
	Pages []Page
}

// LastItem returns the last item of the last non-empty page, or nil when nothing is loaded
func (s State) LastItem() *pokemon.Entity {
	for i := len(s.Pages) - 1; i >= 0; i-- {
		if items := s.Pages[i].Items; len(items) > 0 {
			last := items[len(items)-1]
			return &last
		}
	}
	return nil
}

// LoadError is a failed mediator load. The cache is left as it was before the load.
type LoadError struct {
	LoadType LoadType
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s load failed: %v", e.LoadType, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether trying the same load again could succeed
func (e *LoadError) Retryable() bool {
	return errs.Retryable(e.Err)
}
