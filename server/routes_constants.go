package server

// Route path constants
const (
	// Session routes
	RouteSessionAuth   = "/sessions/auth"
	RouteSessions      = "/sessions"
	RouteSessionTokens = "/sessions/tokens"

	// User routes
	RouteUserMe = "/users/me"

	// Key publication
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	RouteHealth = "/healthz"
)
