package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy bounds store calls: every call gets its own timeout and a
// small fixed number of attempts with fixed backoff. Exhaustion surfaces
// the last error to the caller, which degrades per its own policy (stale
// snapshot for the cache, drop-and-log for the committer).
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

// DefaultRetry mirrors the legacy behavior of three attempts spaced two
// seconds apart.
var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: 2 * time.Second, Timeout: 30 * time.Second}

// Do runs fn up to p.Attempts times, each under its own timeout, sleeping
// p.Backoff between failures. Context cancellation stops retrying. Zero
// fields fall back to DefaultRetry values.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetry.Attempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultRetry.Timeout
	}

	var lastErr error
	for i := 0; i < p.Attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
			slog.DebugContext(ctx, "retrying store call", "attempt", i+1, "attempts", p.Attempts)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("store call failed after %d attempts: %w", p.Attempts, lastErr)
}
