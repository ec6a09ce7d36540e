package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/internal/logger"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/users"
)

// SessionEngine is the session core driven by the HTTP boundary.
type SessionEngine interface {
	Login(ctx context.Context, login, secret string) (token.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (token.Pair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (string, error)
	Profile(ctx context.Context, subject string) (users.Profile, error)
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions SessionEngine
	cookies  cookieJar
	limiter  *LoginRateLimiter
	jwks     token.JWKSProvider
	health   func(context.Context) error
}

// Option configures optional collaborators of the Server.
type Option func(*Server)

// WithJWKSProvider publishes the provider's keys at RouteWellKnownJWKS.
func WithJWKSProvider(p token.JWKSProvider) Option {
	return func(s *Server) {
		s.jwks = p
	}
}

// WithHealthCheck makes RouteHealth report the result of check.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) {
		s.health = check
	}
}

// WithLoginRateLimiter replaces the limiter built from configuration.
func WithLoginRateLimiter(l *LoginRateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

func New(c config.Config, sessions SessionEngine, options ...Option) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("[Server New] session engine is required")
	}

	s := &Server{
		env:      c.GetEnv(),
		mux:      http.NewServeMux(),
		config:   c,
		sessions: sessions,
		cookies:  newCookieJar(c),
		limiter:  NewLoginRateLimiter(c.GetLoginRateLimit(), c.GetLoginRateBurst()),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
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

func (s *Server) logRoutes() {
	if s.env != config.EnvDev {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	displayMethod := color + fmt.Sprintf(" %-7s", method) + ResetColor
	logger.Debug(context.Background(), logger.Msg(fmt.Sprintf("[%-19s] %s", displayMethod, path)))
}

// getScheme determines the scheme (http/https) the client used.
// X-Forwarded-Proto is client controlled unless a proxy overwrites it, so it
// is only read when trustProxy is set.
func getScheme(r *http.Request, trustProxy bool) string {
	if r.TLS != nil {
		return "https"
	}
	if !trustProxy {
		return "http"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
