package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bakkerme/postforge/internal/pipeline"
)

// AuthorProcessor is the in-process pipeline entry point. The scheduler calls
// it directly instead of going through its own HTTP surface.
type AuthorProcessor interface {
	ProcessAuthor(ctx context.Context, handle string) (*pipeline.Result, error)
}

// AuthorResult reports one author's slice of a run. Err and Result are
// mutually exclusive.
type AuthorResult struct {
	Author string
	Result *pipeline.Result
	Err    error
}

// Scheduler fires the author-mode pipeline for a fixed author list on a fixed
// interval. A failing author never aborts the rest of the list, and a failing
// run never stops the next tick. Overlap between a tick and a manual trigger
// is not prevented; the content store's uniqueness constraints resolve the
// race.
type Scheduler struct {
	proc     AuthorProcessor
	authors  []string
	interval time.Duration
	cron     *cron.Cron
	running  atomic.Bool
	logger   *slog.Logger
}

func New(proc AuthorProcessor, authors []string, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if proc == nil {
		return nil, fmt.Errorf("author processor is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		proc:     proc,
		authors:  authors,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}, nil
}

// Start registers the interval job and begins ticking. The context bounds
// each run, not the cron loop; call Stop to tear down.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.authors) == 0 {
		s.logger.Info("no authors configured, scheduler idle")
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("register poll job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "interval", s.interval, "authors", len(s.authors))
	return nil
}

// Stop halts the ticker and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("scheduler stopped")
}

// Running reports whether a run is currently executing.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunNow walks the configured author list once, sequentially. Every author is
// attempted: an error (or panic) in one author's processing is logged and
// reported in its slot without touching the others.
func (s *Scheduler) RunNow(ctx context.Context) []AuthorResult {
	s.running.Store(true)
	defer s.running.Store(false)

	started := time.Now()
	results := make([]AuthorResult, 0, len(s.authors))

	for _, author := range s.authors {
		result, err := s.processOne(ctx, author)
		if err != nil {
			s.logger.Error("author poll failed", "author", author, "error", err)
			results = append(results, AuthorResult{Author: author, Err: err})
			continue
		}
		results = append(results, AuthorResult{Author: author, Result: result})
	}

	s.logger.Info("poll run done", "authors", len(s.authors), "duration", time.Since(started))
	return results
}

func (s *Scheduler) processOne(ctx context.Context, author string) (result *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", author, r)
		}
	}()
	return s.proc.ProcessAuthor(ctx, author)
}
