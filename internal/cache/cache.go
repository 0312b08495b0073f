// Package cache provides a redis-backed response cache with optional gzip
// compression of cached payloads.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"

	"github.com/crystallogic/accounts/internal/metrics"
	redisutil "github.com/crystallogic/accounts/internal/redis"
)

// gzipMagic is the two-byte header every gzip stream starts with. Cached
// payloads are sniffed on read so compressed and plain entries can coexist
// under the same keyspace.
var gzipMagic = []byte{0x1f, 0x8b}

// errNotJSON marks a cached entry whose decoded bytes are not valid JSON.
// Every stored payload is JSON, so such an entry can only be corrupt.
var errNotJSON = errors.New("cached payload is not valid JSON")

// Options controls how a single cache entry is stored.
type Options struct {
	// TTL is the entry expiration. Zero means the cache default.
	TTL time.Duration
	// Compress stores the payload gzip-compressed.
	Compress bool
}

// Cache is a read-through response cache. Lookups are best-effort: any redis
// or payload error degrades to a miss and the value is recomputed, so a
// broken cache never breaks a read path. Reads and writes both retry under
// the shared policy; write failures are only logged.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
	retry      redisutil.RetryPolicy
	logger     *slog.Logger
	metrics    metrics.BusinessMetrics
}

// New creates a Cache on top of the given redis client.
func New(
	client *redis.Client,
	defaultTTL time.Duration,
	retry redisutil.RetryPolicy,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) *Cache {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &Cache{
		client:     client,
		defaultTTL: defaultTTL,
		retry:      retry,
		logger:     logger,
		metrics:    businessMetrics,
	}
}

// Key derives a deterministic cache key from an operation name and its
// parameters. Everything is lowercased and joined with underscores, so
// equivalent requests that differ only in case share one entry.
func Key(operation string, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, strings.ToLower(operation))
	for _, p := range params {
		parts = append(parts, strings.ToLower(p))
	}
	return strings.Join(parts, "_")
}

// GetOrCompute returns the cached payload for operation/params, or runs
// compute, stores its result and returns it. Identical inputs yield
// byte-for-byte identical payloads whether they were served from the cache
// or computed fresh.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	operation string,
	params []string,
	opts Options,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	key := Key(operation, params...)

	if payload, ok := c.lookup(ctx, operation, key); ok {
		return payload, nil
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, payload, opts)

	return payload, nil
}

// Delete removes the entries for the given keys. Used by write paths that
// want to drop stale reads eagerly.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.client.Del(ctx, keys...).Err()
	})
}

// Flush removes every entry in the cache's redis database.
func (c *Cache) Flush(ctx context.Context) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.client.FlushDB(ctx).Err()
	})
}

// lookup fetches and decodes a cached payload. Any failure is reported as a
// miss so the caller recomputes. The entry must decode to valid JSON; every
// stored payload is JSON, so anything else is corruption.
func (c *Cache) lookup(ctx context.Context, operation, key string) ([]byte, bool) {
	var raw []byte
	found := false
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		b, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		raw = b
		found = true
		return nil
	})
	if err != nil {
		c.logger.Warn("cache lookup failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
		c.metrics.RecordCacheLookup(ctx, operation, "error")
		return nil, false
	}
	if !found {
		c.metrics.RecordCacheLookup(ctx, operation, "miss")
		return nil, false
	}

	payload, err := decode(raw)
	if err == nil && !json.Valid(payload) {
		err = errNotJSON
	}
	if err != nil {
		// A corrupt entry is unreadable forever, drop it now.
		c.logger.Warn("dropping corrupt cache entry",
			slog.String("key", key),
			slog.Any("error", err),
		)
		_ = c.client.Del(ctx, key).Err()
		c.metrics.RecordCacheLookup(ctx, operation, "miss")
		return nil, false
	}

	c.metrics.RecordCacheLookup(ctx, operation, "hit")
	return payload, true
}

// store writes a payload under key, best-effort.
func (c *Cache) store(ctx context.Context, key string, payload []byte, opts Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	value := payload
	if opts.Compress {
		compressed, err := compress(payload)
		if err != nil {
			c.logger.Warn("cache compression failed",
				slog.String("key", key),
				slog.Any("error", err),
			)
			return
		}
		value = compressed
	}

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		c.logger.Warn("cache store failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode returns the plain payload, gunzipping when the entry carries the
// gzip magic header.
func decode(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, gzipMagic) {
		return raw, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return payload, nil
}
