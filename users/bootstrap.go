package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
)

// Bootstrap makes sure a user with login exists, creating it with password
// when absent. An existing user is returned untouched.
func Bootstrap(ctx context.Context, repo UserRepo, login, password string) (*User, bool, error) {
	if login == "" {
		return nil, false, apperrors.Wrapf(apperrors.ErrValidation, "[Bootstrap] login is required")
	}

	existing, err := repo.GetByLogin(ctx, login)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, false, fmt.Errorf("[Bootstrap] GetByLogin: %w", err)
	}

	if err := ValidatePasswordStrength(password); err != nil {
		return nil, false, fmt.Errorf("[Bootstrap] %w: %w", apperrors.ErrValidation, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("[Bootstrap] HashPassword: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Login:        login,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Upsert(ctx, user); err != nil {
		return nil, false, fmt.Errorf("[Bootstrap] Upsert: %w", err)
	}
	return user, true, nil
}
