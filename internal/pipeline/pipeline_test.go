package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bakkerme/postforge/internal/core"
	twittermock "github.com/bakkerme/postforge/internal/source/twitter/mock"
)

type fakeCache struct {
	recent map[string]bool
	marked []string
	err    error
}

func (c *fakeCache) RecentlyProcessed(ctx context.Context, id string) (bool, error) {
	_ = ctx
	if c.err != nil {
		return false, c.err
	}
	return c.recent[id], nil
}

func (c *fakeCache) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	_ = at
	c.marked = append(c.marked, id)
	if c.recent == nil {
		c.recent = map[string]bool{}
	}
	c.recent[id] = true
	return nil
}

type fakeFormatter struct {
	fallback bool
	calls    []string
}

func (f *fakeFormatter) FormatItem(ctx context.Context, text string) core.Fields {
	_ = ctx
	f.calls = append(f.calls, text)
	return core.Fields{
		Title:         "title of " + text,
		Summary:       text,
		Slug:          "slug-" + fmt.Sprint(len(f.calls)),
		Tags:          []string{"tag"},
		LocalizedSlug: "loc-slug",
		LocalizedTags: []string{"loc-tag"},
		Fallback:      f.fallback,
	}
}

type fakeRenderer struct{}

func (fakeRenderer) Render(text string) string { return "<p>" + text + "</p>" }

type fakeStore struct {
	created  []core.ContentRecord
	statuses []core.Status
	failIDs  map[string]error
	nextID   int64
}

func (s *fakeStore) CreateFromItem(ctx context.Context, item core.Item, fields core.Fields, body string, status core.Status) (*core.ContentRecord, error) {
	_ = ctx
	if err, ok := s.failIDs[item.ID]; ok {
		return nil, err
	}
	s.nextID++
	record := core.ContentRecord{
		ID:     s.nextID,
		Slug:   fields.Slug,
		Title:  fields.Title,
		Body:   body,
		Status: status,
	}
	id := item.ID
	record.ExternalID = &id
	s.created = append(s.created, record)
	s.statuses = append(s.statuses, status)
	return &record, nil
}

type PipelineTestSuite struct {
	suite.Suite

	fetcher   *twittermock.Fetcher
	cache     *fakeCache
	formatter *fakeFormatter
	store     *fakeStore
}

func (s *PipelineTestSuite) SetupTest() {
	s.fetcher = &twittermock.Fetcher{
		ItemsByID:   map[string]core.Item{},
		AuthorItems: map[string][]core.Item{},
	}
	s.cache = &fakeCache{recent: map[string]bool{}}
	s.formatter = &fakeFormatter{}
	s.store = &fakeStore{failIDs: map[string]error{}}
}

func (s *PipelineTestSuite) newPipeline(opts Options) *Pipeline {
	p, err := New(Deps{
		Fetcher:   s.fetcher,
		Cache:     s.cache,
		Formatter: s.formatter,
		Renderer:  fakeRenderer{},
		Store:     s.store,
	}, opts, nil)
	s.Require().NoError(err)
	return p
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func item(id, text string) core.Item {
	return core.Item{ID: id, Text: text, Author: core.Author{Handle: "nova"}}
}

func (s *PipelineTestSuite) TestProcessIDsIsolatesMissingIDs() {
	s.fetcher.ItemsByID["A"] = item("A", "first")
	s.fetcher.ItemsByID["C"] = item("C", "third")

	result := s.newPipeline(Options{}).ProcessIDs(context.Background(), []string{"A", "B", "C"})

	s.Len(result.Succeeded, 2)
	s.Require().Len(result.Failed, 1)
	s.Equal("B", result.Failed[0].ID)
	s.Contains(result.Failed[0].Reason, "upstream")
	s.Equal(3, len(result.Succeeded)+len(result.Failed))
}

func (s *PipelineTestSuite) TestProcessIDsReportsWholeBatchOnTransportFailure() {
	s.fetcher.IDsErr = errors.New("connection refused")

	result := s.newPipeline(Options{}).ProcessIDs(context.Background(), []string{"A", "B"})

	s.Empty(result.Succeeded)
	s.Len(result.Failed, 2)
	s.Contains(result.Failed[0].Reason, "fetch failed")
}

func (s *PipelineTestSuite) TestProcessIDsIsolatesPersistFailures() {
	s.fetcher.ItemsByID["A"] = item("A", "a")
	s.fetcher.ItemsByID["B"] = item("B", "b")
	s.store.failIDs["B"] = errors.New("slug already taken")

	result := s.newPipeline(Options{}).ProcessIDs(context.Background(), []string{"A", "B"})

	s.Len(result.Succeeded, 1)
	s.Require().Len(result.Failed, 1)
	s.Equal("B", result.Failed[0].ID)
}

func (s *PipelineTestSuite) TestProcessAuthorSkipsRecentlyProcessed() {
	s.fetcher.AuthorItems["nova"] = []core.Item{item("1", "one"), item("2", "two")}
	s.cache.recent["1"] = true

	result, err := s.newPipeline(Options{}).ProcessAuthor(context.Background(), "nova")
	s.Require().NoError(err)

	s.Equal([]string{"1"}, result.Skipped)
	s.Len(result.Succeeded, 1)
	// The skipped item never reached the transformer.
	s.Equal([]string{"two"}, s.formatter.calls)
}

func (s *PipelineTestSuite) TestProcessAuthorMarksCacheAfterEveryAttempt() {
	s.fetcher.AuthorItems["nova"] = []core.Item{item("1", "one"), item("2", "two")}
	s.store.failIDs["2"] = errors.New("boom")

	_, err := s.newPipeline(Options{MarkFailures: true}).ProcessAuthor(context.Background(), "nova")
	s.Require().NoError(err)

	s.ElementsMatch([]string{"1", "2"}, s.cache.marked)
}

func (s *PipelineTestSuite) TestProcessAuthorCanLeaveFailuresUnmarked() {
	s.fetcher.AuthorItems["nova"] = []core.Item{item("1", "one"), item("2", "two")}
	s.store.failIDs["2"] = errors.New("boom")

	_, err := s.newPipeline(Options{MarkFailures: false}).ProcessAuthor(context.Background(), "nova")
	s.Require().NoError(err)

	s.Equal([]string{"1"}, s.cache.marked)
}

func (s *PipelineTestSuite) TestProcessAuthorPropagatesFetchFailure() {
	s.fetcher.AuthorErr = errors.New("upstream down")

	_, err := s.newPipeline(Options{}).ProcessAuthor(context.Background(), "nova")
	s.Error(err)
}

func (s *PipelineTestSuite) TestProcessAuthorAppliesSkipRule() {
	retweet := item("1", "rt")
	retweet.IsRetweet = true
	s.fetcher.AuthorItems["nova"] = []core.Item{retweet, item("2", "keep")}

	result, err := s.newPipeline(Options{SkipRule: "IsRetweet"}).ProcessAuthor(context.Background(), "nova")
	s.Require().NoError(err)

	s.Equal([]string{"1"}, result.Skipped)
	s.Len(result.Succeeded, 1)
	// Rule-skipped items do not enter the dedup window.
	s.Equal([]string{"2"}, s.cache.marked)
}

func (s *PipelineTestSuite) TestFallbackFieldsDemoteRecordStatus() {
	s.fetcher.ItemsByID["A"] = item("A", "text")
	s.formatter.fallback = true

	result := s.newPipeline(Options{
		DefaultStatus:  core.StatusPublished,
		FallbackStatus: core.StatusDraft,
	}).ProcessIDs(context.Background(), []string{"A"})

	s.Require().Len(result.Succeeded, 1)
	s.Equal(core.StatusDraft, result.Succeeded[0].Status)
}

func (s *PipelineTestSuite) TestRecordsCarryRenderedBody() {
	s.fetcher.ItemsByID["A"] = item("A", "text")

	result := s.newPipeline(Options{}).ProcessIDs(context.Background(), []string{"A"})

	s.Require().Len(result.Succeeded, 1)
	s.Equal("<p>text</p>", result.Succeeded[0].Body)
}
