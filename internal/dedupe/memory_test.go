package dedupe

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTracksProcessedIDs(t *testing.T) {
	store := NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	recent, err := store.RecentlyProcessed(context.Background(), "1874")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if recent {
		t.Fatalf("expected unknown id to be stale")
	}

	if err := store.MarkProcessed(context.Background(), "1874", time.Now()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	recent, err = store.RecentlyProcessed(context.Background(), "1874")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !recent {
		t.Fatalf("expected id to be recent inside the TTL window")
	}
}

func TestMemoryStoreExpiresAtLookupTime(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(12*time.Hour, time.Hour, WithClock(clock))
	t.Cleanup(func() { _ = store.Close() })

	if err := store.MarkProcessed(context.Background(), "42", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	now = now.Add(11 * time.Hour)
	recent, err := store.RecentlyProcessed(context.Background(), "42")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !recent {
		t.Fatalf("expected id to still be recent before the TTL elapsed")
	}

	now = now.Add(2 * time.Hour)
	recent, err = store.RecentlyProcessed(context.Background(), "42")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if recent {
		t.Fatalf("expected id to expire after the TTL elapsed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped on lookup, have %d", store.Len())
	}
}

func TestMemoryStoreSweepEvictsStaleEntries(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(time.Hour, time.Hour, WithClock(clock))
	t.Cleanup(func() { _ = store.Close() })

	for _, id := range []string{"a", "b", "c"} {
		if err := store.MarkProcessed(context.Background(), id, now); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}

	now = now.Add(2 * time.Hour)
	if err := store.MarkProcessed(context.Background(), "fresh", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	store.sweep()
	if store.Len() != 1 {
		t.Fatalf("expected sweep to keep only the fresh entry, have %d", store.Len())
	}
}

func TestMemoryStoreMarkIsUnconditionalUpsert(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(time.Hour, time.Hour, WithClock(clock))
	t.Cleanup(func() { _ = store.Close() })

	if err := store.MarkProcessed(context.Background(), "7", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	// Re-marking refreshes the stale entry.
	if err := store.MarkProcessed(context.Background(), "7", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	recent, err := store.RecentlyProcessed(context.Background(), "7")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !recent {
		t.Fatalf("expected refreshed entry to be recent")
	}
}
