package server

// Route path constants
const (
	RouteHealth = "/healthz"

	// OAuth2 Routes
	RouteOAuth2Token = "/oauth2/token"

	// API Routes (bearer token required)
	RouteAPIRoot        = "/api/v2"
	RouteAPIPokemonList = RouteAPIRoot + "/pokemon"
	RouteAPIPokemon     = RouteAPIRoot + "/pokemon/{idOrName}"
	RouteAPISpecies     = RouteAPIRoot + "/pokemon-species/{id}"
)
