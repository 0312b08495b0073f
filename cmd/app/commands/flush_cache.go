package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/crystallogic/accounts/internal/cache"
)

// RunFlushCache removes every entry from the response cache. Cached responses
// are not invalidated on writes, so this is the operational escape hatch when
// stale reads matter.
//
// Requirements: Redis must be accessible.
func RunFlushCache(
	ctx context.Context,
	responseCache *cache.Cache,
	logger *slog.Logger,
	writer io.Writer,
) error {
	logger.Info("flushing response cache")

	if err := responseCache.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush response cache: %w", err)
	}

	fmt.Fprintln(writer, "Response cache flushed")
	logger.Info("response cache flushed")
	return nil
}
