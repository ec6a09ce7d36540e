package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/internal/logger"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/token/ledger"
	"github.com/jrsteele09/go-session-server/users"
)

// SubjectLookup resolves a token subject to a stored identity.
type SubjectLookup interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Repos holds the collaborators of the SessionService
type Repos struct {
	Credentials users.CredentialVerifier // Login verification
	Users       SubjectLookup            // Subject lookups; required for subject checks
	Ledger      ledger.Ledger            // Consumed refresh tokens
}

// SessionService logs users in, rotates refresh tokens and detects refresh
// token replay. Sessions are not stored; a session is the chain of refresh
// tokens anchored at the ledger.
type SessionService struct {
	repos          Repos
	codec          *token.Codec
	revoker        ledger.SubjectRevoker
	revokeOnLogout bool
	checkSubject   bool
	replayCascade  bool
	nowTime        func() time.Time
}

// SessionServiceOption defines a function type to modify the SessionService instance.
type SessionServiceOption func(*SessionService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.nowTime = nowFunc
	}
}

// WithRevokeOnLogout burns the refresh token presented at logout.
func WithRevokeOnLogout(enabled bool) SessionServiceOption {
	return func(s *SessionService) {
		s.revokeOnLogout = enabled
	}
}

// WithSubjectCheck refuses rotation for subjects that no longer exist.
func WithSubjectCheck(enabled bool) SessionServiceOption {
	return func(s *SessionService) {
		s.checkSubject = enabled
	}
}

// WithReplayCascade revokes every token of a subject when one of its refresh
// tokens is replayed. The ledger must implement ledger.SubjectRevoker.
func WithReplayCascade(enabled bool) SessionServiceOption {
	return func(s *SessionService) {
		s.replayCascade = enabled
	}
}

// NewSessionService initializes a SessionService with required dependencies.
func NewSessionService(repos Repos, codec *token.Codec, options ...SessionServiceOption) (*SessionService, error) {
	if repos.Credentials == nil {
		return nil, errors.New("[NewSessionService] credential verifier is required")
	}
	if repos.Ledger == nil {
		return nil, errors.New("[NewSessionService] ledger is required")
	}
	if codec == nil {
		return nil, errors.New("[NewSessionService] codec is required")
	}

	s := &SessionService{
		repos:   repos,
		codec:   codec,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.checkSubject && repos.Users == nil {
		return nil, errors.New("[NewSessionService] users repo is required for subject checks")
	}
	if s.replayCascade {
		revoker, ok := repos.Ledger.(ledger.SubjectRevoker)
		if !ok {
			return nil, errors.New("[NewSessionService] ledger cannot revoke subjects")
		}
		s.revoker = revoker
	}
	return s, nil
}

// Login verifies the credentials and issues a fresh token pair. Credential
// failures are returned as apperrors.ErrUserNotFound or
// apperrors.ErrCredentialMismatch. The ledger is not written.
func (s *SessionService) Login(ctx context.Context, login, secret string) (token.Pair, error) {
	subject, err := s.repos.Credentials.Verify(ctx, login, secret)
	if err != nil {
		if apperrors.IsClientError(err) {
			logger.Info(ctx, logger.Err(err, "login rejected", nil))
		}
		return token.Pair{}, err
	}

	pair, err := s.codec.IssuePair(subject)
	if err != nil {
		return token.Pair{}, apperrors.Tag(apperrors.ErrInternal, errors.Wrap(err, "[SessionService.Login] codec.IssuePair"))
	}
	logger.Info(ctx, logger.MsgFields("login succeeded", logger.Fields{"subject": subject}))
	return pair, nil
}

// Refresh consumes refreshToken and issues the next pair of its chain. A
// token that was already consumed fails with apperrors.ErrRefreshTokenReused
// and never yields a pair, whether or not its subject was revoked since.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	if refreshToken == "" {
		return token.Pair{}, apperrors.ErrMissingRefreshToken
	}

	claims, err := s.codec.Parse(refreshToken, token.KindRefresh)
	if err != nil {
		return token.Pair{}, apperrors.Tag(apperrors.ErrInvalidRefreshToken, err)
	}

	// Read before the token is burned so a concurrent replay of it cannot
	// revoke the rotation that burned it.
	revoked, err := s.isRevoked(ctx, claims)
	if err != nil {
		return token.Pair{}, err
	}

	consumed, err := s.repos.Ledger.IsConsumed(ctx, refreshToken)
	if err != nil {
		return token.Pair{}, apperrors.Storage(errors.Wrap(err, "[SessionService.Refresh] ledger.IsConsumed"))
	}
	if consumed {
		return token.Pair{}, s.replayDetected(ctx, claims)
	}

	inserted, err := s.repos.Ledger.MarkConsumed(ctx, refreshToken, claims.ExpiresAt.Time)
	if err != nil {
		return token.Pair{}, apperrors.Storage(errors.Wrap(err, "[SessionService.Refresh] ledger.MarkConsumed"))
	}
	if !inserted {
		return token.Pair{}, s.replayDetected(ctx, claims)
	}

	// The token is burned from here on; any failure leaves the chain closed.
	if err := ctx.Err(); err != nil {
		return token.Pair{}, err
	}

	if revoked {
		return token.Pair{}, apperrors.Tag(apperrors.ErrInvalidRefreshToken, apperrors.ErrTokenRevoked)
	}

	if s.checkSubject {
		if _, err := s.repos.Users.GetByID(ctx, claims.Subject); err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return token.Pair{}, apperrors.Tag(apperrors.ErrInvalidRefreshToken, err)
			}
			return token.Pair{}, apperrors.Storage(errors.Wrap(err, "[SessionService.Refresh] users.GetByID"))
		}
	}

	pair, err := s.codec.IssuePair(claims.Subject)
	if err != nil {
		return token.Pair{}, apperrors.Tag(apperrors.ErrInternal, errors.Wrap(err, "[SessionService.Refresh] codec.IssuePair"))
	}
	logger.Debug(ctx, logger.MsgFields("refresh token rotated", logger.Fields{"consumed": claims.String()}))
	return pair, nil
}

func (s *SessionService) replayDetected(ctx context.Context, claims *token.Claims) error {
	logger.Warn(ctx, logger.MsgFields("refresh token replay detected", logger.Fields{
		"subject": claims.Subject,
		"jti":     claims.ID,
	}))

	if s.replayCascade {
		now := s.nowTime()
		until := now.Add(s.codec.TTL(token.KindRefresh))
		if err := s.revoker.RevokeSubject(ctx, claims.Subject, now, until); err != nil {
			logger.Error(ctx, logger.Err(err, "failed to revoke subject after replay", logger.Fields{"subject": claims.Subject}))
		}
	}
	return apperrors.ErrRefreshTokenReused
}

// isRevoked reports whether claims were issued at or before the revocation of
// their subject.
func (s *SessionService) isRevoked(ctx context.Context, claims *token.Claims) (bool, error) {
	if !s.replayCascade {
		return false, nil
	}
	revokedAt, found, err := s.revoker.SubjectRevokedAt(ctx, claims.Subject)
	if err != nil {
		return false, apperrors.Storage(errors.Wrap(err, "[SessionService.isRevoked] SubjectRevokedAt"))
	}
	return found && !claims.IssuedAt.Time.After(revokedAt), nil
}

// Logout ends the session of refreshToken. With revoke on logout enabled the
// token is burned so it can no longer be rotated. Tokens that do not parse
// are ignored.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if !s.revokeOnLogout || refreshToken == "" {
		return nil
	}

	claims, err := s.codec.Parse(refreshToken, token.KindRefresh)
	if err != nil {
		logger.Debug(ctx, logger.Err(err, "logout with unusable refresh token", nil))
		return nil
	}

	if _, err := s.repos.Ledger.MarkConsumed(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
		return apperrors.Storage(errors.Wrap(err, "[SessionService.Logout] ledger.MarkConsumed"))
	}
	logger.Info(ctx, logger.MsgFields("logout", logger.Fields{"subject": claims.Subject}))
	return nil
}

// Authenticate validates an access token and returns its subject.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", apperrors.ErrInvalidAccessToken
	}
	claims, err := s.codec.Parse(accessToken, token.KindAccess)
	if err != nil {
		return "", apperrors.Tag(apperrors.ErrInvalidAccessToken, err)
	}
	revoked, err := s.isRevoked(ctx, claims)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", apperrors.Tag(apperrors.ErrInvalidAccessToken, apperrors.ErrTokenRevoked)
	}
	return claims.Subject, nil
}

// Profile returns the public profile of subject. Without a users repo only
// the id is known.
func (s *SessionService) Profile(ctx context.Context, subject string) (users.Profile, error) {
	if s.repos.Users == nil {
		return users.Profile{ID: subject}, nil
	}
	u, err := s.repos.Users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return users.Profile{}, apperrors.Tag(apperrors.ErrInvalidAccessToken, err)
		}
		return users.Profile{}, apperrors.Storage(errors.Wrap(err, "[SessionService.Profile] users.GetByID"))
	}
	return u.Profile(), nil
}
