package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.Health(), s.StdMiddleware()...))

	// OAuth2
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.StdMiddleware()...))

	// Protected API
	s.RegisterRouteHandler("GET "+RouteAPIPokemonList, ChainMiddleware(s.ListPokemon(), s.StdMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIPokemon, ChainMiddleware(s.GetPokemon(), s.StdMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPISpecies, ChainMiddleware(s.GetSpecies(), s.StdMiddleware(s.RequireAuth())...))
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "pokemon": s.catalog.Len()})
	}
}
