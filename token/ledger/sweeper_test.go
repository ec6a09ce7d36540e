package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSweepOnce(t *testing.T) {
	l := NewMemoryLedger()
	now := time.Unix(1_700_000_000, 0)
	_, err := l.MarkConsumed(context.Background(), "old", now.Add(-time.Minute))
	require.NoError(t, err)

	s := NewSweeper(l, time.Minute)
	s.nowFunc = func() time.Time { return now }

	removed, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Equal(t, 0, l.Len())
}

func TestSweepOnceReportsFailure(t *testing.T) {
	s := NewSweeper(&countingSweeper{err: errors.New("db down")}, time.Minute)
	_, err := s.SweepOnce(context.Background())
	require.Error(t, err)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	target := &countingSweeper{}
	s := NewSweeper(target, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeperDisabledWaitsForCancel(t *testing.T) {
	target := &countingSweeper{}
	s := NewSweeper(target, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	require.Equal(t, int32(0), target.calls.Load())
}
