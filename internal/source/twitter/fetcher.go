package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bakkerme/postforge/internal/core"
	"github.com/bakkerme/postforge/internal/retry"
)

const defaultBaseURL = "https://api.twitterapi.io"

// FetchError reports a transport failure or a non-success upstream response.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("twitter %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("twitter %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   retry.Config
}

// Fetcher retrieves raw items from the upstream content API.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retryCfg   retry.Config
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		retryCfg:   cfg.Retry,
		logger:     logger.With("source", "twitter"),
	}
}

// FetchByIDs resolves an explicit id set in one batched call. The upstream
// silently omits ids it does not know, so the result can be a strict subset
// of the request.
func (f *Fetcher) FetchByIDs(ctx context.Context, ids []string) ([]core.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("tweet_ids", strings.Join(ids, ","))

	var resp tweetsResponse
	if err := f.getJSON(ctx, "fetch_by_ids", "/twitter/tweets", query, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, &FetchError{Op: "fetch_by_ids", Err: fmt.Errorf("upstream status %q: %s", resp.Status, resp.Msg)}
	}

	return f.toItems(resp.Tweets), nil
}

// FetchByAuthor returns the author's latest items, most recent first, bounded
// by the upstream page size. A well-formed but empty payload is an empty
// list, not an error.
func (f *Fetcher) FetchByAuthor(ctx context.Context, handle string) ([]core.Item, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, &FetchError{Op: "fetch_by_author", Err: fmt.Errorf("empty author handle")}
	}

	query := url.Values{}
	query.Set("userName", handle)

	var resp lastTweetsResponse
	if err := f.getJSON(ctx, "fetch_by_author", "/twitter/user/last_tweets", query, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, &FetchError{Op: "fetch_by_author", Err: fmt.Errorf("upstream status %q: %s", resp.Status, resp.Msg)}
	}

	return f.toItems(resp.Data.Tweets), nil
}

func (f *Fetcher) toItems(payloads []tweetPayload) []core.Item {
	items := make([]core.Item, 0, len(payloads))
	for _, p := range payloads {
		item, ok := p.toItem()
		if !ok {
			f.logger.Warn("skipping malformed upstream entry", "id", p.ID)
			continue
		}
		items = append(items, item)
	}
	return items
}

func (f *Fetcher) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := f.baseURL + path + "?" + query.Encode()

	err := retry.Do(ctx, f.retryCfg, func() error {
		return f.doRequest(ctx, op, endpoint, out)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return fe
		}
		return &FetchError{Op: op, Err: err}
	}
	return nil
}

func (f *Fetcher) doRequest(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &FetchError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
