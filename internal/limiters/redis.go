package limiters

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps one sorted set per subject. Members are credential ids
// scored by issuance time in microseconds.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisLimiter(redisClient redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "gocred:rl"
	}
	return &RedisLimiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (l *RedisLimiter) key(subject Subject) string {
	return l.prefix + ":" + subject.key()
}

// CanIssue trims entries that fell out of the window and evaluates the rest.
func (l *RedisLimiter) CanIssue(ctx context.Context, subject Subject, policy Policy, now time.Time) (Decision, error) {
	if l == nil || l.redis == nil || policy.MaxAttempts <= 0 {
		return Decision{Allowed: true, Reason: ReasonUnlimited}, nil
	}

	key := l.key(subject)
	threshold := now.Add(-policy.Window).UnixMicro()

	var rangeCmd *redis.ZSliceCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(threshold, 10))
		rangeCmd = pipe.ZRangeWithScores(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	entries := rangeCmd.Val()
	history := make([]time.Time, 0, len(entries))
	for _, z := range entries {
		history = append(history, time.UnixMicro(int64(z.Score)))
	}

	return Evaluate(history, now, policy), nil
}

// Record adds an issuance and refreshes the key TTL.
func (l *RedisLimiter) Record(ctx context.Context, subject Subject, credentialID string, at time.Time, policy Policy) error {
	if l == nil || l.redis == nil || policy.MaxAttempts <= 0 {
		return nil
	}

	ttl := policy.Window
	if policy.Cooldown > ttl {
		ttl = policy.Cooldown
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	key := l.key(subject)
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMicro()), Member: credentialID})
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}
