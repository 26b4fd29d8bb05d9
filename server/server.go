package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-pokedex/oauthmodel"
	"github.com/jrsteele09/go-pokedex/token/issuer"
	"github.com/rs/zerolog/log"
)

// Issuer answers the token endpoint and verifies bearer tokens on the API routes
type Issuer interface {
	Token(req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error)
	Verify(rawToken string) (*issuer.Claims, error)
}

var _ Issuer = (*issuer.Issuer)(nil)

// Server is the development backend: a token endpoint and a bearer protected copy of the
// list, detail and species API over an in-memory catalog.
type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	catalog *Catalog
	issuer  Issuer
}

type Option func(*Server)

// WithEnv sets the environment; routes are listed at start-up only in DEV
func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = strings.ToUpper(env)
	}
}

func New(catalog *Catalog, issuer Issuer, options ...Option) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		catalog: catalog,
		issuer:  issuer,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered patterns in registration order
func (s *Server) Routes() []string {
	return append([]string{}, s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.Routes() {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColours[method]; ok {
		return colour + paddedMethod + ResetColour
	}
	return Gray + paddedMethod + ResetColour
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// baseURL is the absolute URL of the API root as seen by the caller
func baseURL(r *http.Request) string {
	return getScheme(r) + "://" + r.Host + RouteAPIRoot
}
