// Package ledgertest holds the behaviour every ledger backend must share.
package ledgertest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-server/token/ledger"
)

// Factory returns an empty ledger for one subtest.
type Factory func(t *testing.T) ledger.Ledger

// Run exercises the ledger contract against the ledgers built by newLedger.
func Run(t *testing.T, newLedger Factory) {
	t.Run("unknown token is not consumed", func(t *testing.T) {
		l := newLedger(t)
		consumed, err := l.IsConsumed(context.Background(), "never-seen")
		require.NoError(t, err)
		require.False(t, consumed)
	})

	t.Run("mark then lookup", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		expiresAt := time.Now().Add(time.Hour)

		inserted, err := l.MarkConsumed(ctx, "token-a", expiresAt)
		require.NoError(t, err)
		require.True(t, inserted)

		consumed, err := l.IsConsumed(ctx, "token-a")
		require.NoError(t, err)
		require.True(t, consumed)

		consumed, err = l.IsConsumed(ctx, "token-b")
		require.NoError(t, err)
		require.False(t, consumed)
	})

	t.Run("duplicate mark reports not inserted", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		expiresAt := time.Now().Add(time.Hour)

		inserted, err := l.MarkConsumed(ctx, "token-a", expiresAt)
		require.NoError(t, err)
		require.True(t, inserted)

		inserted, err = l.MarkConsumed(ctx, "token-a", expiresAt)
		require.NoError(t, err)
		require.False(t, inserted)
	})

	t.Run("concurrent marks have exactly one winner", func(t *testing.T) {
		l := newLedger(t)
		const workers = 16
		expiresAt := time.Now().Add(time.Hour)

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			start   = make(chan struct{})
			errs    = make(chan error, workers)
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				inserted, err := l.MarkConsumed(context.Background(), "contested", expiresAt)
				if err != nil {
					errs <- err
					return
				}
				if inserted {
					winners.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, int32(1), winners.Load())
	})

	t.Run("subject watermark only rises", func(t *testing.T) {
		l := newLedger(t)
		revoker, ok := l.(ledger.SubjectRevoker)
		if !ok {
			t.Skip("ledger does not keep subject watermarks")
		}
		ctx := context.Background()
		until := time.Now().Add(time.Hour)

		_, found, err := revoker.SubjectRevokedAt(ctx, "user-1")
		require.NoError(t, err)
		require.False(t, found)

		first := time.Unix(1_700_000_100, 0)
		require.NoError(t, revoker.RevokeSubject(ctx, "user-1", first, until))
		require.NoError(t, revoker.RevokeSubject(ctx, "user-1", first.Add(-time.Minute), until))

		at, found, err := revoker.SubjectRevokedAt(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, first.Unix(), at.Unix())

		later := first.Add(time.Minute)
		require.NoError(t, revoker.RevokeSubject(ctx, "user-1", later, until))
		at, _, err = revoker.SubjectRevokedAt(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, later.Unix(), at.Unix())

		_, found, err = revoker.SubjectRevokedAt(ctx, "user-2")
		require.NoError(t, err)
		require.False(t, found)
	})
}
