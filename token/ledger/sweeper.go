package ledger

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-server/internal/logger"
)

// Sweeper periodically removes expired entries from a Sweepable ledger.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	nowFunc  func() time.Time
}

func NewSweeper(target Sweepable, interval time.Duration) *Sweeper {
	return &Sweeper{
		target:   target,
		interval: interval,
		nowFunc:  time.Now,
	}
}

// SweepOnce runs a single sweep and logs its outcome.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := s.target.Sweep(ctx, s.nowFunc())
	if err != nil {
		logger.Error(ctx, logger.Err(err, "ledger sweep failed", nil))
		return 0, err
	}
	if removed > 0 {
		logger.Debug(ctx, logger.MsgFields("ledger sweep", logger.Fields{"removed": removed}))
	}
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled. Sweep failures are logged
// and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
