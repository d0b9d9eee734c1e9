package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Config controls the retry loop. Zero values fall back to conservative
// defaults suitable for rate-limited upstream APIs.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Jitter <= 0 {
		c.Jitter = 250 * time.Millisecond
	}
	return c
}

// Do runs fn up to cfg.Attempts times with exponential backoff between
// attempts. The context cancels the wait between attempts, not a running fn.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if attempt == cfg.Attempts {
				break
			}
			sleep := delay + time.Duration(rand.Int63n(int64(cfg.Jitter)))
			if sleep > cfg.MaxDelay {
				sleep = cfg.MaxDelay
			}
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("after %d attempt(s): %w", cfg.Attempts, lastErr)
}
