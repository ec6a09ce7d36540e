package users

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
)

// CredentialVerifier resolves a login and secret to a user id. It fails with
// apperrors.ErrUserNotFound or apperrors.ErrCredentialMismatch.
type CredentialVerifier interface {
	Verify(ctx context.Context, login, secret string) (string, error)
}

// PasswordVerifier checks bcrypt password hashes held in a UserRepo.
type PasswordVerifier struct {
	repo      UserRepo
	dummyHash string
}

var _ CredentialVerifier = (*PasswordVerifier)(nil)

// NewPasswordVerifier creates a verifier over repo.
func NewPasswordVerifier(repo UserRepo) (*PasswordVerifier, error) {
	if repo == nil {
		return nil, errors.New("[NewPasswordVerifier] user repo is required")
	}
	// Unknown logins are compared against this hash so both failures cost
	// one bcrypt comparison.
	dummy, err := HashPassword("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("[NewPasswordVerifier] %w", err)
	}
	return &PasswordVerifier{repo: repo, dummyHash: dummy}, nil
}

func (v *PasswordVerifier) Verify(ctx context.Context, login, secret string) (string, error) {
	user, err := v.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			_ = CheckPasswordHash(secret, v.dummyHash)
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Storage(err)
	}

	if !CheckPasswordHash(secret, user.PasswordHash) {
		return "", apperrors.ErrCredentialMismatch
	}
	return user.ID, nil
}
