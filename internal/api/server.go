package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bakkerme/postforge/internal/core"
	"github.com/bakkerme/postforge/internal/pipeline"
	"github.com/bakkerme/postforge/internal/scheduler"
	"github.com/bakkerme/postforge/internal/transform"
)

// BatchProcessor runs ingestion batches. Satisfied by *pipeline.Pipeline.
type BatchProcessor interface {
	ProcessIDs(ctx context.Context, ids []string) *pipeline.Result
	ProcessAuthor(ctx context.Context, handle string) (*pipeline.Result, error)
}

// FreeTextFormatter rewrites arbitrary text under a caller-supplied
// instruction. Satisfied by *transform.Formatter.
type FreeTextFormatter interface {
	FormatFreeText(ctx context.Context, text, instruction string) transform.FreeText
}

// ContentStore is the persistence surface the handlers need.
type ContentStore interface {
	Update(ctx context.Context, id int64, partial map[string]any) (*core.ContentRecord, error)
	Get(ctx context.Context, id int64) (*core.ContentRecord, error)
	List(ctx context.Context) ([]core.ContentRecord, error)
}

// SchedulerControl exposes the manual trigger for the poll scheduler.
type SchedulerControl interface {
	RunNow(ctx context.Context) []scheduler.AuthorResult
	Running() bool
}

type Deps struct {
	Pipeline  BatchProcessor
	Formatter FreeTextFormatter
	Store     ContentStore
	Scheduler SchedulerControl
}

type Config struct {
	AllowOrigins []string
}

type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *slog.Logger
}

func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	posts := api.Group("/posts")
	posts.POST("/ingest", s.handleIngestByIDs)
	posts.GET("/ingest/by-author", s.handleIngestByAuthor)
	posts.PATCH("/:id", s.handleUpdatePost)
	posts.GET("", s.handleListPosts)
	posts.GET("/:id", s.handleGetPost)

	api.POST("/format", s.handleFormat)
	api.POST("/scheduler/run", s.handleSchedulerRun)
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
