package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Pair is an access token and a refresh token issued together.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Codec issues and validates signed, expiring session tokens.
type Codec struct {
	signer     Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	nowFunc    func() time.Time
	newID      func() string
}

type CodecOption func(*Codec)

func WithTTLs(access, refresh time.Duration) CodecOption {
	return func(c *Codec) {
		c.accessTTL = access
		c.refreshTTL = refresh
	}
}

// WithIssuer sets the iss claim on issued tokens and requires it on parse.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// NewCodec creates a codec signing with signer. The access token TTL must be
// strictly shorter than the refresh token TTL.
func NewCodec(signer Signer, options ...CodecOption) (*Codec, error) {
	c := &Codec{
		signer:     signer,
		accessTTL:  DefaultAccessTokenTTL,
		refreshTTL: DefaultRefreshTokenTTL,
		nowFunc:    time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.signer == nil {
		return nil, errors.New("[NewCodec] signer is required")
	}
	if c.accessTTL <= 0 || c.refreshTTL <= 0 {
		return nil, errors.New("[NewCodec] token TTLs must be positive")
	}
	if c.accessTTL >= c.refreshTTL {
		return nil, errors.Errorf("[NewCodec] access TTL %s must be shorter than refresh TTL %s", c.accessTTL, c.refreshTTL)
	}
	return c, nil
}

// TTL returns the lifetime of tokens of kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindAccess {
		return c.accessTTL
	}
	return c.refreshTTL
}

// Signer returns the signer the codec signs with.
func (c *Codec) Signer() Signer {
	return c.signer
}

// Issue signs a new token of kind for subject and returns it with its expiry.
func (c *Codec) Issue(subject string, kind Kind) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, apperrors.Wrapf(apperrors.ErrValidation, "[Codec.Issue] empty subject")
	}
	if !kind.Valid() {
		return "", time.Time{}, apperrors.Wrapf(apperrors.ErrValidation, "[Codec.Issue] unknown token kind %q", kind)
	}

	now := c.nowFunc()
	expiresAt := now.Add(c.TTL(kind))
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        c.newID(),
		},
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Codec.Issue] sign")
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssuePair issues a fresh access token and refresh token for subject.
func (c *Codec) IssuePair(subject string) (Pair, error) {
	access, accessExp, err := c.Issue(subject, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := c.Issue(subject, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Parse validates raw and returns its claims. Failures wrap ErrTokenInvalid,
// ErrTokenExpired or ErrTokenKindMismatch; no claims are returned with them.
func (c *Codec) Parse(raw string, kind Kind) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, c.signer.GetVerificationKey, opts...); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Tag(apperrors.ErrTokenExpired, err)
		}
		return nil, apperrors.Tag(apperrors.ErrTokenInvalid, err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil || !claims.Kind.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrTokenInvalid, "missing required claims")
	}
	if claims.Kind != kind {
		return nil, errors.Wrapf(apperrors.ErrTokenKindMismatch, "got %s, want %s", claims.Kind, kind)
	}
	return claims, nil
}

// Verify validates raw and returns its subject.
func (c *Codec) Verify(raw string, kind Kind) (string, error) {
	claims, err := c.Parse(raw, kind)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
