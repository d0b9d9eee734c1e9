package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bakkerme/postforge/internal/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const contentColumns = "id, external_id, slug, title, summary, body, embed, status, kind, " +
	"tags, localized_tags, localized_slug, featured_image, fallback, created_at, updated_at"

// ContentStore persists ContentRecords in Postgres. Uniqueness of external id
// and slug is enforced by the database, not by application checks.
type ContentStore struct {
	db     *sqlx.DB
	kind   string
	logger *slog.Logger
}

func NewContentStore(db *sqlx.DB, kind string, logger *slog.Logger) *ContentStore {
	if kind == "" {
		kind = "tweet"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentStore{db: db, kind: kind, logger: logger.With("component", "store")}
}

type contentRow struct {
	ID            int64          `db:"id"`
	ExternalID    sql.NullString `db:"external_id"`
	Slug          string         `db:"slug"`
	Title         string         `db:"title"`
	Summary       string         `db:"summary"`
	Body          string         `db:"body"`
	Embed         string         `db:"embed"`
	Status        string         `db:"status"`
	Kind          string         `db:"kind"`
	Tags          pq.StringArray `db:"tags"`
	LocalizedTags pq.StringArray `db:"localized_tags"`
	LocalizedSlug string         `db:"localized_slug"`
	FeaturedImage sql.NullString `db:"featured_image"`
	Fallback      bool           `db:"fallback"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r contentRow) toCore() core.ContentRecord {
	record := core.ContentRecord{
		ID:            r.ID,
		Slug:          r.Slug,
		Title:         r.Title,
		Summary:       r.Summary,
		Body:          r.Body,
		Embed:         r.Embed,
		Status:        core.Status(r.Status),
		Kind:          r.Kind,
		Tags:          []string(r.Tags),
		LocalizedTags: []string(r.LocalizedTags),
		LocalizedSlug: r.LocalizedSlug,
		Fallback:      r.Fallback,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ExternalID.Valid {
		id := r.ExternalID.String
		record.ExternalID = &id
	}
	if r.FeaturedImage.Valid {
		img := r.FeaturedImage.String
		record.FeaturedImage = &img
	}
	return record
}

// CreateFromItem builds and inserts the record for a processed item. The
// insert is create-only: a duplicate external id or slug yields a
// *DuplicateError and leaves the existing record untouched.
func (s *ContentStore) CreateFromItem(ctx context.Context, item core.Item, fields core.Fields, body string, status core.Status) (*core.ContentRecord, error) {
	if !status.Valid() {
		status = core.StatusDraft
	}

	var featured any
	if len(item.Media) > 0 {
		featured = item.Media[0].URL
	}

	query, args, err := psql.Insert("content_records").
		Columns("external_id", "slug", "title", "summary", "body", "embed", "status", "kind",
			"tags", "localized_tags", "localized_slug", "featured_image", "fallback").
		Values(item.ID, fields.Slug, fields.Title, fields.Summary, body, buildEmbedMarkup(item),
			string(status), s.kind, pq.Array(fields.Tags), pq.Array(fields.LocalizedTags),
			fields.LocalizedSlug, featured, fields.Fallback).
		Suffix("RETURNING " + contentColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var row contentRow
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, classify(err)
	}

	record := row.toCore()
	return &record, nil
}

// Recognized update payload keys mapped to their columns. The store id and
// timestamps are deliberately absent.
var updatableColumns = map[string]string{
	"title":         "title",
	"summary":       "summary",
	"slug":          "slug",
	"body":          "body",
	"embed":         "embed",
	"status":        "status",
	"kind":          "kind",
	"tags":          "tags",
	"localizedTags": "localized_tags",
	"localizedSlug": "localized_slug",
	"featuredImage": "featured_image",
	"externalId":    "external_id",
	"fallback":      "fallback",
}

// Update applies the recognized fields of partial to the record. Unknown keys
// are ignored; uniqueness is re-validated by the database.
func (s *ContentStore) Update(ctx context.Context, id int64, partial map[string]any) (*core.ContentRecord, error) {
	sets, err := buildSetMap(partial)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	query, args, err := psql.Update("content_records").
		SetMap(sets).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + contentColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var row contentRow
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}

	record := row.toCore()
	return &record, nil
}

// Get fetches one record by store id.
func (s *ContentStore) Get(ctx context.Context, id int64) (*core.ContentRecord, error) {
	var row contentRow
	query := "SELECT " + contentColumns + " FROM content_records WHERE id = $1"
	if err := s.db.QueryRowxContext(ctx, query, id).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	record := row.toCore()
	return &record, nil
}

// List returns all records, newest first.
func (s *ContentStore) List(ctx context.Context) ([]core.ContentRecord, error) {
	query := "SELECT " + contentColumns + " FROM content_records ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []core.ContentRecord{}
	for rows.Next() {
		var row contentRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		records = append(records, row.toCore())
	}
	return records, rows.Err()
}

func buildSetMap(partial map[string]any) (map[string]any, error) {
	sets := make(map[string]any, len(partial))
	for key, value := range partial {
		column, ok := updatableColumns[key]
		if !ok {
			continue
		}
		switch column {
		case "status":
			str, ok := value.(string)
			if !ok || !core.Status(str).Valid() {
				return nil, &BadFieldError{Field: key, Reason: "status must be draft or published"}
			}
			sets[column] = str
		case "tags", "localized_tags":
			list, err := toStringSlice(value)
			if err != nil {
				return nil, &BadFieldError{Field: key, Reason: err.Error()}
			}
			sets[column] = pq.Array(list)
		case "fallback":
			flag, ok := value.(bool)
			if !ok {
				return nil, &BadFieldError{Field: key, Reason: "must be a boolean"}
			}
			sets[column] = flag
		default:
			if value == nil {
				sets[column] = nil
				continue
			}
			str, ok := value.(string)
			if !ok {
				return nil, &BadFieldError{Field: key, Reason: "must be a string"}
			}
			sets[column] = str
		}
	}
	return sets, nil
}

func toStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("must be a list of strings")
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list of strings")
	}
}
