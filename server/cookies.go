package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/token"
)

// cookieJar moves token pairs between the session engine and the two
// http-only token cookies.
type cookieJar struct {
	accessName  string
	refreshName string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	secure      config.CookieSecure
	trustProxy  bool
}

func newCookieJar(c config.SessionConfig) cookieJar {
	return cookieJar{
		accessName:  c.GetAccessCookieName(),
		refreshName: c.GetRefreshCookieName(),
		accessTTL:   c.GetAccessTokenTTL(),
		refreshTTL:  c.GetRefreshTokenTTL(),
		secure:      c.GetCookieSecure(),
		trustProxy:  c.GetTrustProxyHeaders(),
	}
}

func (j cookieJar) isSecure(r *http.Request) bool {
	switch j.secure {
	case config.CookieSecureAlways:
		return true
	case config.CookieSecureNever:
		return false
	default:
		return getScheme(r, j.trustProxy) == "https"
	}
}

func (j cookieJar) cookie(r *http.Request, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   j.isSecure(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}

// setPair writes both token cookies. Max-Age follows the token lifetimes.
func (j cookieJar) setPair(w http.ResponseWriter, r *http.Request, pair token.Pair) {
	http.SetCookie(w, j.cookie(r, j.accessName, pair.AccessToken, int(j.accessTTL.Seconds())))
	http.SetCookie(w, j.cookie(r, j.refreshName, pair.RefreshToken, int(j.refreshTTL.Seconds())))
}

// clear expires both token cookies.
func (j cookieJar) clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, j.cookie(r, j.accessName, "", -1))
	http.SetCookie(w, j.cookie(r, j.refreshName, "", -1))
}

func (j cookieJar) accessToken(r *http.Request) string {
	return cookieValue(r, j.accessName)
}

func (j cookieJar) refreshToken(r *http.Request) string {
	return cookieValue(r, j.refreshName)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
