package ratelimit

import (
	"context"
	"time"
)

// AttemptStore is a keyed counter whose keys expire a window after the
// latest increment.
type AttemptStore interface {
	// Count returns the live count for key, zero when absent or expired.
	Count(ctx context.Context, key string) (int, error)

	// Increment bumps key and returns the new count. Each call restarts the
	// window, so a client that keeps failing stays locked out.
	Increment(ctx context.Context, key string, window time.Duration) (int, error)

	Reset(ctx context.Context, key string) error
}
