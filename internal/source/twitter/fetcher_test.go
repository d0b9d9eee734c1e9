package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bakkerme/postforge/internal/retry"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Retry:   retry.Config{Attempts: 1},
	}, nil)
}

func TestFetchByIDsReturnsSubsetUpstreamKnows(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tweet_ids"); got != "1,2,3" {
			t.Errorf("unexpected tweet_ids query: %q", got)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"tweets": [
				{"id": "1", "text": "first", "createdAt": "Mon Sep 01 10:00:00 +0000 2025", "author": {"userName": "nova", "name": "Nova"}},
				{"id": "3", "text": "third", "createdAt": "2025-09-01T11:00:00Z", "author": {"userName": "nova", "name": "Nova"}}
			]
		}`))
	})

	items, err := fetcher.FetchByIDs(context.Background(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "3" {
		t.Fatalf("unexpected ids: %q %q", items[0].ID, items[1].ID)
	}
	if items[0].Author.Handle != "nova" {
		t.Fatalf("unexpected author handle: %q", items[0].Author.Handle)
	}
	if items[0].CreatedAt.IsZero() || items[1].CreatedAt.IsZero() {
		t.Fatalf("expected both timestamp layouts to parse")
	}
}

func TestFetchByIDsRejectsNonSuccessStatus(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := fetcher.FetchByIDs(context.Background(), []string{"1"})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", fe.Status)
	}
}

func TestFetchByIDsRejectsUpstreamErrorPayload(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "error", "msg": "rate limited"}`))
	})

	_, err := fetcher.FetchByIDs(context.Background(), []string{"1"})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}

func TestFetchByAuthorNormalizesEmptyPayload(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userName"); got != "nova" {
			t.Errorf("unexpected userName query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success", "data": {"tweets": []}}`))
	})

	items, err := fetcher.FetchByAuthor(context.Background(), "nova")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(items))
	}
}

func TestFetchByAuthorSkipsMalformedEntries(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {"tweets": [
				{"id": "", "text": "no id"},
				{"id": "9", "text": "", "author": {"userName": "nova"}},
				{"id": "10", "text": "kept", "retweeted_tweet_id": "5", "author": {"userName": "nova"},
				 "extendedEntities": {"media": [{"type": "photo", "media_url_https": "https://img.example/1.jpg"}]}}
			]}
		}`))
	})

	items, err := fetcher.FetchByAuthor(context.Background(), "nova")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 valid item, got %d", len(items))
	}
	if !items[0].IsRetweet {
		t.Fatalf("expected retweet flag to be set")
	}
	if len(items[0].Media) != 1 || items[0].Media[0].URL != "https://img.example/1.jpg" {
		t.Fatalf("unexpected media: %+v", items[0].Media)
	}
}

func TestFetchByAuthorRequiresHandle(t *testing.T) {
	fetcher := New(Config{}, nil)
	_, err := fetcher.FetchByAuthor(context.Background(), "  ")
	if err == nil {
		t.Fatalf("expected error for empty handle")
	}
}
