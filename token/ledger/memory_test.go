package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-server/token/ledger"
	"github.com/jrsteele09/go-session-server/token/ledger/ledgertest"
)

func TestMemoryLedgerContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		return ledger.NewMemoryLedger()
	})
}

func TestMemoryLedgerSweep(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	_, err := l.MarkConsumed(ctx, "expired", now.Add(-time.Second))
	require.NoError(t, err)
	_, err = l.MarkConsumed(ctx, "live", now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, l.RevokeSubject(ctx, "old", now.Add(-time.Hour), now.Add(-time.Minute)))
	require.NoError(t, l.RevokeSubject(ctx, "recent", now, now.Add(time.Hour)))

	removed, err := l.Sweep(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Equal(t, 1, l.Len())

	consumed, err := l.IsConsumed(ctx, "live")
	require.NoError(t, err)
	require.True(t, consumed)

	_, found, err := l.SubjectRevokedAt(ctx, "old")
	require.NoError(t, err)
	require.False(t, found)
	_, found, err = l.SubjectRevokedAt(ctx, "recent")
	require.NoError(t, err)
	require.True(t, found)
}

func TestMemoryLedgerHonoursCancellation(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.MarkConsumed(ctx, "token", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, l.Len())
}

func TestDigest(t *testing.T) {
	require.Len(t, ledger.Digest("token"), 64)
	require.Equal(t, ledger.Digest("token"), ledger.Digest("token"))
	require.NotEqual(t, ledger.Digest("token"), ledger.Digest("token2"))
	require.NotContains(t, ledger.Digest("token"), "token")
}
