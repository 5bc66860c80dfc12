package auditlog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// maxAttempts and retryDelay are the fixed retry contract for every
	// insert and every RPC-style read, uniform across all record kinds.
	maxAttempts = 3
	retryDelay  = 500 * time.Millisecond
)

// Retry runs fn up to maxAttempts times with a fixed inter-attempt delay.
// The last error is the one surfaced when all attempts are exhausted.
// Safe for concurrent callers; no state is shared beyond the store itself.
func Retry(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		logger.Warn("store operation failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(lastErr))

		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
