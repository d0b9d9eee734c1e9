package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/postforge/internal/core"
)

// Fetcher resolves raw items from the upstream content API.
type Fetcher interface {
	FetchByIDs(ctx context.Context, ids []string) ([]core.Item, error)
	FetchByAuthor(ctx context.Context, handle string) ([]core.Item, error)
}

// Cache is the process-local dedup window consulted on the author path.
type Cache interface {
	RecentlyProcessed(ctx context.Context, id string) (bool, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
}

// Formatter produces content fields; it never fails outward.
type Formatter interface {
	FormatItem(ctx context.Context, text string) core.Fields
}

// BodyRenderer converts raw text into the record's HTML body.
type BodyRenderer interface {
	Render(text string) string
}

// Store persists processed items.
type Store interface {
	CreateFromItem(ctx context.Context, item core.Item, fields core.Fields, body string, status core.Status) (*core.ContentRecord, error)
}

// Options is the single configuration point for behavior that used to be
// duplicated across service variants: record status defaults and the cache
// retry policy are values, not forked code paths.
type Options struct {
	// DefaultStatus is assigned to records built from genuine transforms.
	DefaultStatus core.Status
	// FallbackStatus is assigned when the Transformer fell back locally, so
	// degraded content can be held for review instead of published.
	FallbackStatus core.Status
	// MarkFailures controls whether failed attempts enter the dedup window.
	// Marking them throttles retries of persistently broken items; leaving
	// them unmarked lets transient faults retry on the next poll.
	MarkFailures bool
	// SkipRule is an optional expression evaluated per item on the author
	// path; matching items are skipped before transform/persist.
	SkipRule string
}

type Deps struct {
	Fetcher   Fetcher
	Cache     Cache
	Formatter Formatter
	Renderer  BodyRenderer
	Store     Store
}

// Failure pairs an external id with a human-readable reason.
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Result itemizes one batch invocation. Every input id lands in exactly one
// of Succeeded or Failed; Skipped only ever holds author-path ids that were
// filtered before the transform stage.
type Result struct {
	Succeeded []core.ContentRecord `json:"successfulPosts"`
	Failed    []Failure            `json:"failedIds"`
	Skipped   []string             `json:"skippedCachedIds"`
}

// Pipeline drives fetch → dedupe → transform → persist for a batch of items,
// sequentially, isolating each item's failure from the rest of the batch.
type Pipeline struct {
	fetcher   Fetcher
	cache     Cache
	formatter Formatter
	renderer  BodyRenderer
	store     Store
	filter    *ItemFilter
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func New(deps Deps, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if deps.Fetcher == nil || deps.Formatter == nil || deps.Store == nil {
		return nil, fmt.Errorf("fetcher, formatter and store are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = core.StatusPublished
	}
	if opts.FallbackStatus == "" {
		opts.FallbackStatus = core.StatusDraft
	}

	var filter *ItemFilter
	if opts.SkipRule != "" {
		var err error
		filter, err = NewItemFilter(opts.SkipRule)
		if err != nil {
			return nil, fmt.Errorf("compile skip rule: %w", err)
		}
	}

	return &Pipeline{
		fetcher:   deps.Fetcher,
		cache:     deps.Cache,
		formatter: deps.Formatter,
		renderer:  deps.Renderer,
		store:     deps.Store,
		filter:    filter,
		opts:      opts,
		logger:    logger.With("component", "pipeline"),
		now:       time.Now,
	}, nil
}

// ProcessIDs resolves and processes an explicit id set. It never returns an
// error: fetch problems are itemized per id so the caller always receives a
// result whose buckets sum to the input size.
func (p *Pipeline) ProcessIDs(ctx context.Context, ids []string) *Result {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "mode", "ids")
	ctx = core.WithRunID(core.WithLogger(ctx, logger), runID)

	tracer := otel.Tracer("postforge/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.process_ids")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("pipeline.requested", len(ids)),
	)
	defer span.End()

	result := &Result{Succeeded: []core.ContentRecord{}, Failed: []Failure{}, Skipped: []string{}}

	items, err := p.fetcher.FetchByIDs(ctx, ids)
	if err != nil {
		logger.Error("batched fetch failed", "error", err)
		for _, id := range ids {
			result.Failed = append(result.Failed, Failure{ID: id, Reason: fmt.Sprintf("fetch failed: %v", err)})
		}
		return result
	}

	byID := make(map[string]core.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			result.Failed = append(result.Failed, Failure{ID: id, Reason: "not returned by upstream"})
			continue
		}
		record, err := p.processItem(ctx, item)
		if err != nil {
			logger.Warn("item failed", "id", id, "error", err)
			result.Failed = append(result.Failed, Failure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, *record)
	}

	logger.Info("id batch done",
		"requested", len(ids),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
	)
	return result
}

// ProcessAuthor fetches an author's latest items and processes the ones the
// dedup window and skip rule let through. The cache is marked after every
// attempt; failed attempts are marked only when Options.MarkFailures is set.
func (p *Pipeline) ProcessAuthor(ctx context.Context, handle string) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "mode", "author", "author", handle)
	ctx = core.WithRunID(core.WithLogger(ctx, logger), runID)

	tracer := otel.Tracer("postforge/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.process_author")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("pipeline.author", handle),
	)
	defer span.End()

	items, err := p.fetcher.FetchByAuthor(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("fetch author %s: %w", handle, err)
	}

	result := &Result{Succeeded: []core.ContentRecord{}, Failed: []Failure{}, Skipped: []string{}}

	for _, item := range items {
		if p.filter != nil {
			skip, err := p.filter.Skip(item)
			if err != nil {
				logger.Warn("skip rule failed, processing item anyway", "id", item.ID, "error", err)
			} else if skip {
				logger.Debug("item matched skip rule", "id", item.ID)
				result.Skipped = append(result.Skipped, item.ID)
				continue
			}
		}

		if p.cache != nil {
			recent, err := p.cache.RecentlyProcessed(ctx, item.ID)
			if err != nil {
				logger.Warn("dedup lookup failed, treating as unprocessed", "id", item.ID, "error", err)
			} else if recent {
				result.Skipped = append(result.Skipped, item.ID)
				continue
			}
		}

		record, perr := p.processItem(ctx, item)
		if perr != nil {
			logger.Warn("item failed", "id", item.ID, "error", perr)
			result.Failed = append(result.Failed, Failure{ID: item.ID, Reason: perr.Error()})
		} else {
			result.Succeeded = append(result.Succeeded, *record)
		}

		if p.cache != nil && (perr == nil || p.opts.MarkFailures) {
			if err := p.cache.MarkProcessed(ctx, item.ID, p.now()); err != nil {
				logger.Warn("dedup mark failed", "id", item.ID, "error", err)
			}
		}
	}

	logger.Info("author batch done",
		"fetched", len(items),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (p *Pipeline) processItem(ctx context.Context, item core.Item) (*core.ContentRecord, error) {
	fields := p.formatter.FormatItem(ctx, item.Text)

	status := p.opts.DefaultStatus
	if fields.Fallback {
		status = p.opts.FallbackStatus
		core.LoggerFromContext(ctx).Warn("transform fell back, demoting status",
			"id", item.ID,
			"status", string(status),
			"reason", fields.FallbackReason,
		)
	}

	body := item.Text
	if p.renderer != nil {
		body = p.renderer.Render(item.Text)
	}

	record, err := p.store.CreateFromItem(ctx, item, fields, body, status)
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return record, nil
}
