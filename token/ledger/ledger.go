// Package ledger records consumed refresh tokens. A token present in the
// ledger is never accepted for rotation again.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Ledger is the store of consumed refresh tokens.
type Ledger interface {
	// IsConsumed reports whether token has been consumed. Unknown tokens are
	// not consumed; only a storage failure returns an error.
	IsConsumed(ctx context.Context, token string) (bool, error)

	// MarkConsumed records token as consumed until expiresAt. It is an atomic
	// insert-if-absent: inserted is false when the token was already present.
	MarkConsumed(ctx context.Context, token string, expiresAt time.Time) (inserted bool, err error)
}

// SubjectRevoker keeps a per-subject revocation watermark. Tokens of the
// subject issued at or before the watermark are no longer honoured.
type SubjectRevoker interface {
	// RevokeSubject raises the subject's watermark to at. The watermark may be
	// forgotten after until, once every token it covers has expired.
	RevokeSubject(ctx context.Context, subject string, at, until time.Time) error

	// SubjectRevokedAt returns the subject's watermark, if any.
	SubjectRevokedAt(ctx context.Context, subject string) (time.Time, bool, error)
}

// Sweepable is implemented by ledgers whose expired entries must be removed
// explicitly.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time) (removed int64, err error)
}

// Digest returns the key a token is stored under. Raw tokens are never
// persisted.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
