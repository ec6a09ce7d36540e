package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-server/token/ledger"
)

// Ledger is a refresh token ledger kept in the consumed_refresh_tokens table.
// Tokens are stored by digest with their expiry as unix seconds.
type Ledger struct {
	db      *DB
	nowFunc func() time.Time
}

var (
	_ ledger.Ledger         = (*Ledger)(nil)
	_ ledger.SubjectRevoker = (*Ledger)(nil)
	_ ledger.Sweepable      = (*Ledger)(nil)
)

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db, nowFunc: time.Now}
}

func (l *Ledger) IsConsumed(ctx context.Context, token string) (bool, error) {
	query := l.db.dialect.rebind(`
		SELECT 1
		FROM consumed_refresh_tokens
		WHERE token_digest = ?
	`)
	var one int
	if err := l.db.QueryRowContext(ctx, query, ledger.Digest(token)).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

// MarkConsumed inserts the token digest unless present. The conflict clause
// makes the insert atomic across concurrent callers.
func (l *Ledger) MarkConsumed(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	query := l.db.dialect.rebind(`
		INSERT INTO consumed_refresh_tokens (token_digest, expires_at, consumed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_digest) DO NOTHING
	`)
	res, err := l.db.ExecContext(ctx, query, ledger.Digest(token), expiresAt.Unix(), l.nowFunc().Unix())
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}

func (l *Ledger) RevokeSubject(ctx context.Context, subject string, at, until time.Time) error {
	query := l.db.dialect.rebind(`
		INSERT INTO revoked_subjects (subject, revoked_at, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (subject) DO UPDATE
		SET revoked_at = excluded.revoked_at, expires_at = excluded.expires_at
		WHERE excluded.revoked_at > revoked_subjects.revoked_at
	`)
	if _, err := l.db.ExecContext(ctx, query, subject, at.Unix(), until.Unix()); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (l *Ledger) SubjectRevokedAt(ctx context.Context, subject string) (time.Time, bool, error) {
	query := l.db.dialect.rebind(`
		SELECT revoked_at
		FROM revoked_subjects
		WHERE subject = ?
	`)
	var secs int64
	if err := l.db.QueryRowContext(ctx, query, subject).Scan(&secs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("db error: %w", err)
	}
	return time.Unix(secs, 0), true, nil
}

// Sweep deletes consumed tokens and watermarks that expired before now.
func (l *Ledger) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := l.db.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, l.db.dialect.rebind(`
			DELETE FROM consumed_refresh_tokens
			WHERE expires_at < ?
		`), now.Unix())
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, l.db.dialect.rebind(`
			DELETE FROM revoked_subjects
			WHERE expires_at < ?
		`), now.Unix())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return removed, nil
}
