package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bakkerme/postforge/internal/core"
	"github.com/bakkerme/postforge/internal/pipeline"
	"github.com/bakkerme/postforge/internal/source/twitter"
	"github.com/bakkerme/postforge/internal/store/postgres"
)

type errorResponse struct {
	Message string `json:"message"`
}

type ingestRequest struct {
	TweetIDs []string `json:"tweet_ids"`
}

type ingestResponse struct {
	Message   string               `json:"message"`
	Succeeded []core.ContentRecord `json:"successfulPosts"`
	Failed    []pipeline.Failure   `json:"failedIds"`
}

type authorIngestResponse struct {
	Message   string               `json:"message"`
	Succeeded []core.ContentRecord `json:"successfulPosts"`
	Failed    []pipeline.Failure   `json:"failedIds"`
	Skipped   []string             `json:"skippedCachedIds"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "postforge",
		"scheduler": s.deps.Scheduler != nil && s.deps.Scheduler.Running(),
	})
}

func (s *Server) handleIngestByIDs(c echo.Context) error {
	var req ingestRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		}
	}

	ids := req.TweetIDs
	if len(ids) == 0 {
		if q := strings.TrimSpace(c.QueryParam("tweet_ids")); q != "" {
			ids = strings.Split(q, ",")
		}
	}

	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !isTweetID(id) {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: fmt.Sprintf("invalid tweet id %q", id)})
		}
		cleaned = append(cleaned, id)
	}
	if len(cleaned) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "tweet_ids is required"})
	}

	result := s.deps.Pipeline.ProcessIDs(c.Request().Context(), cleaned)
	return c.JSON(http.StatusOK, ingestResponse{
		Message:   batchMessage(len(cleaned), len(result.Succeeded), len(result.Failed)),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
}

func (s *Server) handleIngestByAuthor(c echo.Context) error {
	userName := strings.TrimSpace(c.QueryParam("userName"))
	if userName == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "userName is required"})
	}

	result, err := s.deps.Pipeline.ProcessAuthor(c.Request().Context(), userName)
	if err != nil {
		var fe *twitter.FetchError
		if errors.As(err, &fe) {
			return c.JSON(http.StatusBadGateway, errorResponse{Message: fmt.Sprintf("upstream fetch failed: %v", err)})
		}
		s.logger.Error("author ingest failed", "userName", userName, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "author ingest failed"})
	}

	total := len(result.Succeeded) + len(result.Failed) + len(result.Skipped)
	return c.JSON(http.StatusOK, authorIngestResponse{
		Message:   batchMessage(total, len(result.Succeeded), len(result.Failed)),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	})
}

type formatRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

func (s *Server) handleFormat(c echo.Context) error {
	var req formatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "text is required"})
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "instruction is required"})
	}

	out := s.deps.Formatter.FormatFreeText(c.Request().Context(), req.Text, req.Instruction)
	return c.JSON(http.StatusOK, dataResponse{
		Success: !out.Fallback,
		Data:    out,
	})
}

func (s *Server) handleUpdatePost(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid post id"})
	}

	partial := map[string]any{}
	if err := c.Bind(&partial); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	// Identity fields never travel through a partial update.
	delete(partial, "_id")
	delete(partial, "id")
	if len(partial) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "no updatable fields supplied"})
	}

	record, err := s.deps.Store.Update(c.Request().Context(), id, partial)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: record})
}

func (s *Server) handleGetPost(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid post id"})
	}
	record, err := s.deps.Store.Get(c.Request().Context(), id)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: record})
}

func (s *Server) handleListPosts(c echo.Context) error {
	records, err := s.deps.Store.List(c.Request().Context())
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to list posts"})
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: records})
}

type schedulerRunEntry struct {
	User    string               `json:"user"`
	Success []core.ContentRecord `json:"success"`
	Failed  []pipeline.Failure   `json:"failed"`
	Skipped []string             `json:"skipped"`
}

type schedulerRunError struct {
	User  string `json:"user"`
	Error string `json:"error"`
}

func (s *Server) handleSchedulerRun(c echo.Context) error {
	if s.deps.Scheduler == nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "scheduler is not configured"})
	}

	results := s.deps.Scheduler.RunNow(c.Request().Context())
	entries := make([]any, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			entries = append(entries, schedulerRunError{User: r.Author, Error: r.Err.Error()})
			continue
		}
		entries = append(entries, schedulerRunEntry{
			User:    r.Author,
			Success: r.Result.Succeeded,
			Failed:  r.Result.Failed,
			Skipped: r.Result.Skipped,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": fmt.Sprintf("scheduler run complete for %d author(s)", len(entries)),
		"results": entries,
	})
}

func (s *Server) storeError(c echo.Context, err error) error {
	var dup *postgres.DuplicateError
	var bad *postgres.BadFieldError
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Message: "post not found"})
	case errors.As(err, &dup):
		return c.JSON(http.StatusConflict, errorResponse{Message: dup.Error()})
	case errors.As(err, &bad):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: bad.Error()})
	default:
		s.logger.Error("store operation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "storage operation failed"})
	}
}

func batchMessage(total, ok, failed int) string {
	return fmt.Sprintf("processed %d tweet(s): %d succeeded, %d failed", total, ok, failed)
}

// isTweetID reports whether id looks like a numeric tweet snowflake.
func isTweetID(id string) bool {
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(id) > 0
}
