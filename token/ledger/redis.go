package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// minEntryTTL keeps entries for tokens that are already expired long enough
// to settle concurrent rotations.
const minEntryTTL = time.Second

const raiseWatermarkScript = `
local cur = redis.call("GET", KEYS[1])
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`

var raiseWatermarkLua = redis.NewScript(raiseWatermarkScript)

// RedisLedger stores consumed tokens as keys that expire with the token.
// Expiry is delegated to Redis, so it needs no sweeping.
type RedisLedger struct {
	redis   redis.UniversalClient
	prefix  string
	nowFunc func() time.Time
}

var (
	_ Ledger         = (*RedisLedger)(nil)
	_ SubjectRevoker = (*RedisLedger)(nil)
)

type RedisOption func(*RedisLedger)

func WithRedisNowFunc(now func() time.Time) RedisOption {
	return func(l *RedisLedger) {
		l.nowFunc = now
	}
}

// NewRedisLedger creates a ledger in the key namespace prefix.
func NewRedisLedger(client redis.UniversalClient, prefix string, options ...RedisOption) *RedisLedger {
	l := &RedisLedger{
		redis:   client,
		prefix:  prefix,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *RedisLedger) tokenKey(token string) string {
	return l.prefix + ":consumed:" + Digest(token)
}

func (l *RedisLedger) subjectKey(subject string) string {
	return l.prefix + ":revoked:" + subject
}

func (l *RedisLedger) ttlUntil(t time.Time) time.Duration {
	ttl := t.Sub(l.nowFunc())
	if ttl < minEntryTTL {
		return minEntryTTL
	}
	return ttl
}

func (l *RedisLedger) IsConsumed(ctx context.Context, token string) (bool, error) {
	n, err := l.redis.Exists(ctx, l.tokenKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkConsumed uses SET NX so concurrent callers observe exactly one insert.
func (l *RedisLedger) MarkConsumed(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	return l.redis.SetNX(ctx, l.tokenKey(token), expiresAt.Unix(), l.ttlUntil(expiresAt)).Result()
}

func (l *RedisLedger) RevokeSubject(ctx context.Context, subject string, at, until time.Time) error {
	return raiseWatermarkLua.Run(
		ctx,
		l.redis,
		[]string{l.subjectKey(subject)},
		at.Unix(),
		l.ttlUntil(until).Milliseconds(),
	).Err()
}

func (l *RedisLedger) SubjectRevokedAt(ctx context.Context, subject string) (time.Time, bool, error) {
	raw, err := l.redis.Get(ctx, l.subjectKey(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(secs, 0), true, nil
}
