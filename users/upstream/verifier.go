// Package upstream verifies credentials against an external OpenID Connect
// provider using the resource owner password grant.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/internal/logger"
	"github.com/jrsteele09/go-session-server/users"
)

type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Verifier delegates credential checks to an OIDC provider. The subject of
// the returned ID token becomes the user id.
type Verifier struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	repo     users.UserRepo
	nowFunc  func() time.Time
}

var _ users.CredentialVerifier = (*Verifier)(nil)

type Option func(*Verifier)

// WithUserRepo records every verified identity in repo so subjects can be
// looked up locally later.
func WithUserRepo(repo users.UserRepo) Option {
	return func(v *Verifier) {
		v.repo = repo
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(v *Verifier) {
		v.nowFunc = now
	}
}

// New discovers the provider at cfg.Issuer.
func New(ctx context.Context, cfg Config, options ...Option) (*Verifier, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.New("[upstream.New] issuer and client id are required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("[upstream.New] discovery failed: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID}
	}

	v := &Verifier{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID, Now: v.nowFunc})
	return v, nil
}

func (v *Verifier) Verify(ctx context.Context, login, secret string) (string, error) {
	tok, err := v.oauth.PasswordCredentialsToken(ctx, login, secret)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant" {
			return "", apperrors.ErrCredentialMismatch
		}
		return "", apperrors.Tag(apperrors.ErrInternal, fmt.Errorf("upstream token request: %w", err))
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", apperrors.Tag(apperrors.ErrInternal, errors.New("upstream response has no id_token"))
	}
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", apperrors.Tag(apperrors.ErrInternal, fmt.Errorf("upstream id_token rejected: %w", err))
	}

	if v.repo != nil {
		if err := v.provision(ctx, idToken.Subject, login); err != nil {
			return "", apperrors.Storage(err)
		}
	}
	return idToken.Subject, nil
}

func (v *Verifier) provision(ctx context.Context, subject, login string) error {
	existing, err := v.repo.GetByID(ctx, subject)
	switch {
	case err == nil && existing.Login == login:
		return nil
	case err != nil && !errors.Is(err, apperrors.ErrUserNotFound):
		return err
	}

	user := &users.User{ID: subject, Login: login, CreatedAt: v.nowFunc().UTC().Truncate(time.Second)}
	if existing != nil {
		user.CreatedAt = existing.CreatedAt
	}
	if err := v.repo.Upsert(ctx, user); err != nil {
		return err
	}
	logger.Info(ctx, logger.MsgFields("provisioned upstream identity", logger.Fields{"subject": subject}))
	return nil
}
