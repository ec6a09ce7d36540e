package ledger

import (
	"context"
	"sync"
	"time"
)

type watermark struct {
	at    time.Time
	until time.Time
}

// MemoryLedger is an in-process ledger guarded by a mutex.
type MemoryLedger struct {
	mu       sync.RWMutex
	consumed map[string]time.Time
	subjects map[string]watermark
}

var (
	_ Ledger         = (*MemoryLedger)(nil)
	_ SubjectRevoker = (*MemoryLedger)(nil)
	_ Sweepable      = (*MemoryLedger)(nil)
)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		consumed: make(map[string]time.Time),
		subjects: make(map[string]watermark),
	}
}

func (l *MemoryLedger) IsConsumed(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.consumed[Digest(token)]
	return ok, nil
}

func (l *MemoryLedger) MarkConsumed(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := Digest(token)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.consumed[key]; ok {
		return false, nil
	}
	l.consumed[key] = expiresAt
	return true, nil
}

func (l *MemoryLedger) RevokeSubject(ctx context.Context, subject string, at, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.subjects[subject]; ok && !at.After(cur.at) {
		return nil
	}
	l.subjects[subject] = watermark{at: at, until: until}
	return nil
}

func (l *MemoryLedger) SubjectRevokedAt(ctx context.Context, subject string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.subjects[subject]
	return w.at, ok, nil
}

// Sweep drops entries whose token expired before now.
func (l *MemoryLedger) Sweep(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int64
	for key, exp := range l.consumed {
		if exp.Before(now) {
			delete(l.consumed, key)
			removed++
		}
	}
	for subject, w := range l.subjects {
		if w.until.Before(now) {
			delete(l.subjects, subject)
		}
	}
	return removed, nil
}

// Len returns the number of consumed tokens held.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.consumed)
}
