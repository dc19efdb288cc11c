package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// withRetry runs fn under the runner's retry settings with exponential
// backoff. Storage writes are the only transient-failure surface in the
// pipeline, so the settings come straight from RunConfig.
func (r *Runner) withRetry(ctx context.Context, fn func(context.Context) error) error {
	maxRetries := r.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := r.cfg.RetryBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		r.logger.Warn("storage write failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
