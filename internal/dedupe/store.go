package dedupe

import (
	"context"
	"time"
)

// Store answers "was this external id attempted recently?". Entries are
// written after every processing attempt; whether an entry is stale is decided
// at lookup time, never by a background timer.
type Store interface {
	RecentlyProcessed(ctx context.Context, id string) (bool, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	Close() error
}
