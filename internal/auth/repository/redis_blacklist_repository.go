// Package repository implements persistence for authentication entities.
//
// Token revocation lives in redis: a revoked token is stored as a key with a
// TTL at least as long as the token lifetime, so every entry outlives the
// token it rejects.
package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/crystallogic/accounts/internal/errors"
	redisutil "github.com/crystallogic/accounts/internal/redis"
)

// blacklistValue is the marker stored under a revoked token's key. Only key
// existence matters.
const blacklistValue = "blacklisted"

// RedisBlacklistRepository stores revoked bearer tokens in redis.
type RedisBlacklistRepository struct {
	client *redis.Client
	ttl    time.Duration
	retry  redisutil.RetryPolicy
}

// NewRedisBlacklistRepository creates a new redis-backed blacklist. Entries
// expire after ttl.
func NewRedisBlacklistRepository(
	client *redis.Client,
	ttl time.Duration,
	retry redisutil.RetryPolicy,
) *RedisBlacklistRepository {
	return &RedisBlacklistRepository{
		client: client,
		ttl:    ttl,
		retry:  retry,
	}
}

// Revoke marks a token as revoked. Fails closed: when redis keeps failing
// after the retry budget the caller gets ErrUnavailable and must report the
// logout as failed, otherwise the token would silently stay usable.
func (r *RedisBlacklistRepository) Revoke(ctx context.Context, token string) error {
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.client.Set(ctx, token, blacklistValue, r.ttl).Err()
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, "failed to blacklist token: "+err.Error())
	}
	return nil
}

// IsRevoked reports whether a token has been revoked. The lookup runs under
// the same retry policy as Revoke; errors that survive the retries are
// returned so the caller can choose its own failure mode.
func (r *RedisBlacklistRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		count, err = r.client.Exists(ctx, token).Result()
		return err
	})
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check token blacklist")
	}
	return count > 0, nil
}
