package core

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the recognized record statuses.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ContentRecord is the persisted, transformed representation of an Item.
// ExternalID (when present) and Slug are unique across the store; a conflicting
// insert is rejected, never merged.
type ContentRecord struct {
	ID            int64     `json:"id"`
	ExternalID    *string   `json:"externalId,omitempty"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	Body          string    `json:"body"`
	Embed         string    `json:"embed"`
	Status        Status    `json:"status"`
	Kind          string    `json:"kind"`
	Tags          []string  `json:"tags"`
	LocalizedTags []string  `json:"localizedTags"`
	LocalizedSlug string    `json:"localizedSlug"`
	FeaturedImage *string   `json:"featuredImage,omitempty"`
	Fallback      bool      `json:"fallback"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Fields is the structured output of the Transformer. Fallback marks results
// built locally after a generative-text failure so callers can treat them as
// degraded instead of publishing them as-is.
type Fields struct {
	Title          string
	Summary        string
	Slug           string
	Tags           []string
	LocalizedSlug  string
	LocalizedTags  []string
	Fallback       bool
	FallbackReason string
}
