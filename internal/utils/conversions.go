package utils

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TrailingID returns the numeric last path segment of a resource URL,
// e.g. "https://pokeapi.co/api/v2/pokemon/25/" -> 25.
func TrailingID(resourceURL string) (int, error) {
	trimmed := strings.TrimRight(resourceURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	segment := trimmed[idx+1:]
	id, err := strconv.Atoi(segment)
	if err != nil {
		return 0, fmt.Errorf("no numeric id in %q", resourceURL)
	}
	return id, nil
}

// Capitalize upper-cases the first rune only, "mr-mime" -> "Mr-mime".
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Ptr returns a pointer to a copy of v, for optional keys such as RemoteKey.NextKey.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences p, giving the zero value for nil.
func Value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
