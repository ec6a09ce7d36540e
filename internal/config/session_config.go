package config

import "time"

const (
	accessTokenTTLVar    = "ACCESS_TOKEN_TTL"
	refreshTokenTTLVar   = "REFRESH_TOKEN_TTL"
	signingKeyVar        = "SIGNING_KEY"
	signingKeyFileVar    = "SIGNING_KEY_FILE"
	signingKeyIDVar      = "SIGNING_KEY_ID"
	issuerVar            = "TOKEN_ISSUER"
	accessCookieNameVar  = "ACCESS_TOKEN_COOKIE"
	refreshCookieNameVar = "REFRESH_TOKEN_COOKIE"
	cookieSecureVar      = "COOKIE_SECURE"
	trustProxyHeadersVar = "TRUST_PROXY_HEADERS"
)

// SessionConfig carries the token lifetimes, key material and cookie names
// consumed by the session engine and the cookie adapter.
type SessionConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSigningKey() string
	GetSigningKeyFile() string
	GetSigningKeyID() string
	GetIssuer() string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetCookieSecure() CookieSecure
	GetTrustProxyHeaders() bool
}

// CookieSecure controls the Secure attribute of the token cookies.
type CookieSecure string

const (
	CookieSecureAuto   CookieSecure = "auto" // Secure when the request arrived over https, see GetTrustProxyHeaders
	CookieSecureAlways CookieSecure = "always"
	CookieSecureNever  CookieSecure = "never"
)

type Session struct {
	src *source
}

var _ SessionConfig = Session{}

func (s Session) GetAccessTokenTTL() time.Duration {
	return s.src.getDuration(accessTokenTTLVar, 15*time.Minute)
}

func (s Session) GetRefreshTokenTTL() time.Duration {
	return s.src.getDuration(refreshTokenTTLVar, 7*24*time.Hour) // 7 days
}

// GetSigningKey returns the HMAC secret. Ignored when a key file is set.
func (s Session) GetSigningKey() string {
	return s.src.get(signingKeyVar, "")
}

// GetSigningKeyFile returns the path of a PEM encoded RSA private key.
func (s Session) GetSigningKeyFile() string {
	return s.src.get(signingKeyFileVar, "")
}

func (s Session) GetSigningKeyID() string {
	return s.src.get(signingKeyIDVar, "session-key-1")
}

func (s Session) GetIssuer() string {
	return s.src.get(issuerVar, "go-session-server")
}

func (s Session) GetAccessCookieName() string {
	return s.src.get(accessCookieNameVar, "accessToken")
}

func (s Session) GetRefreshCookieName() string {
	return s.src.get(refreshCookieNameVar, "refreshToken")
}

func (s Session) GetCookieSecure() CookieSecure {
	switch v := CookieSecure(s.src.get(cookieSecureVar, string(CookieSecureAuto))); v {
	case CookieSecureAlways, CookieSecureNever:
		return v
	default:
		return CookieSecureAuto
	}
}

// GetTrustProxyHeaders lets X-Forwarded-Proto decide whether a request arrived
// over https. Enable it only behind a proxy that overwrites the header;
// otherwise set COOKIE_SECURE=always when TLS terminates upstream.
func (s Session) GetTrustProxyHeaders() bool {
	return s.src.getBool(trustProxyHeadersVar, false)
}
