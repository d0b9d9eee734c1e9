package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS content_records (
		id BIGSERIAL PRIMARY KEY,
		external_id TEXT,
		slug TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		embed TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		kind TEXT NOT NULL DEFAULT 'tweet',
		tags TEXT[] NOT NULL DEFAULT '{}',
		localized_tags TEXT[] NOT NULL DEFAULT '{}',
		localized_slug TEXT NOT NULL DEFAULT '',
		featured_image TEXT,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS content_records_slug_key
		ON content_records (slug)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS content_records_external_id_key
		ON content_records (external_id) WHERE external_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS content_records_created_at_idx
		ON content_records (created_at DESC)`,
}

// EnsureSchema creates the content table and its uniqueness indexes if they
// do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
