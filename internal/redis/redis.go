// Package redis provides redis connection management and a shared retry
// policy for the stores built on top of it.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Connect creates a redis client with the given configuration and verifies
// connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RetryPolicy describes a bounded retry loop with a doubling delay between
// attempts.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryPolicy matches the historical behavior of the service: three
// attempts with a one second delay that doubles after each failure.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: time.Second,
}

// Do runs op until it succeeds or the attempt budget is exhausted, sleeping
// between attempts. The last error is returned when every attempt fails, and
// the loop stops early if the context is canceled.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}
