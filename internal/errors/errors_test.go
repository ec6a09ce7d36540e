package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	t.Run("matches kind and cause", func(t *testing.T) {
		err := apperrors.Tag(apperrors.ErrInvalidRefreshToken, apperrors.ErrTokenExpired)
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
		require.Equal(t, "invalid refresh token: token expired", err.Error())
	})

	t.Run("nil cause returns kind", func(t *testing.T) {
		require.Equal(t, apperrors.ErrRefreshTokenReused, apperrors.Tag(apperrors.ErrRefreshTokenReused, nil))
	})
}

func TestStorage(t *testing.T) {
	require.NoError(t, apperrors.Storage(nil))

	cause := fmt.Errorf("dial tcp: connection refused")
	err := apperrors.Storage(cause)
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.ErrorIs(t, err, cause)

	// already tagged errors are not wrapped twice
	require.Equal(t, err, apperrors.Storage(err))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrStorage, "ledger %s", "redis")
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.Equal(t, "ledger redis: storage error", err.Error())
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing refresh", apperrors.ErrMissingRefreshToken, true},
		{"reuse", fmt.Errorf("refresh: %w", apperrors.ErrRefreshTokenReused), true},
		{"credential mismatch", apperrors.ErrCredentialMismatch, true},
		{"storage", apperrors.Storage(fmt.Errorf("boom")), false},
		{"storage wrapping a client kind", apperrors.Storage(apperrors.ErrUserNotFound), false},
		{"unknown", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, apperrors.IsClientError(tt.err))
		})
	}
}
