package server

func (s *Server) initRoutes() {
	// SESSIONS
	s.RegisterRouteHandler("POST "+RouteSessionAuth, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("DELETE "+RouteSessions, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionTokens, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// USERS
	s.RegisterRouteHandler("GET "+RouteUserMe, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireAccessToken())...))

	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKSHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
}
