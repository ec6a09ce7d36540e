package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-server/token/ledger"
	"github.com/jrsteele09/go-session-server/token/ledger/ledgertest"
)

func newRedisLedger(t *testing.T, opts ...ledger.RedisOption) (*ledger.RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return ledger.NewRedisLedger(rdb, "test", opts...), mr
}

func TestRedisLedgerContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		l, _ := newRedisLedger(t)
		return l
	})
}

func TestRedisLedgerStoresDigestWithTokenTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l, mr := newRedisLedger(t, ledger.WithRedisNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	inserted, err := l.MarkConsumed(ctx, "raw-token", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, inserted)

	key := "test:consumed:" + ledger.Digest("raw-token")
	require.True(t, mr.Exists(key))
	require.Equal(t, time.Hour, mr.TTL(key))
	for _, k := range mr.Keys() {
		require.NotContains(t, k, "raw-token")
	}

	mr.FastForward(time.Hour + time.Second)
	consumed, err := l.IsConsumed(ctx, "raw-token")
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestRedisLedgerExpiredTokenKeepsMinimumTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l, mr := newRedisLedger(t, ledger.WithRedisNowFunc(func() time.Time { return now }))

	inserted, err := l.MarkConsumed(context.Background(), "stale", now.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, time.Second, mr.TTL("test:consumed:"+ledger.Digest("stale")))
}

func TestRedisLedgerWatermarkExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l, mr := newRedisLedger(t, ledger.WithRedisNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, l.RevokeSubject(ctx, "user-1", now, now.Add(time.Hour)))
	require.Equal(t, time.Hour, mr.TTL("test:revoked:user-1"))

	mr.FastForward(2 * time.Hour)
	_, found, err := l.SubjectRevokedAt(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisLedgerSurfacesOutage(t *testing.T) {
	l, mr := newRedisLedger(t)
	mr.Close()

	_, err := l.IsConsumed(context.Background(), "token")
	require.Error(t, err)

	_, err = l.MarkConsumed(context.Background(), "token", time.Now().Add(time.Hour))
	require.Error(t, err)
}
