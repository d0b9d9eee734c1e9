package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/bakkerme/postforge/internal/core"
	"github.com/bakkerme/postforge/internal/llm"
)

type Config struct {
	Model         string
	Temperature   float64
	Language      string
	DecodeRetries int
	FallbackTag   string
	// FallbackLocalizedTag is the generic tag (and localized-slug stem) used
	// when a result is built without the generative service.
	FallbackLocalizedTag string
}

func (c Config) withDefaults() Config {
	if c.Language == "" {
		c.Language = "Arabic"
	}
	if c.DecodeRetries < 0 {
		c.DecodeRetries = 0
	}
	if c.FallbackTag == "" {
		c.FallbackTag = "update"
	}
	if c.FallbackLocalizedTag == "" {
		c.FallbackLocalizedTag = "منشور"
	}
	return c
}

// Formatter turns raw item text into structured, localized content fields.
// FormatItem and FormatFreeText never fail outward: any fault in the
// generative call or its response is recovered into a deterministic local
// result flagged as a fallback.
type Formatter struct {
	client       llm.Client
	cfg          Config
	systemPrompt string
	logger       *slog.Logger
	now          func() time.Time
}

func NewFormatter(client llm.Client, cfg Config, logger *slog.Logger) (*Formatter, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.New("format").Parse(formatSystemTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse format template: %w", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, struct{ Language string }{Language: cfg.Language}); err != nil {
		return nil, fmt.Errorf("execute format template: %w", err)
	}

	return &Formatter{
		client:       client,
		cfg:          cfg,
		systemPrompt: sb.String(),
		logger:       logger.With("component", "transform"),
		now:          time.Now,
	}, nil
}

type formatResponse struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Slug          string   `json:"slug"`
	Tags          []string `json:"tags"`
	LocalizedSlug string   `json:"localized_slug"`
	LocalizedTags []string `json:"localized_tags"`
}

// FormatItem rewrites text into the six content fields. On any fault the
// returned Fields are a complete local fallback with Fallback set.
func (f *Formatter) FormatItem(ctx context.Context, text string) core.Fields {
	fields, err := f.tryFormat(ctx, text)
	if err != nil {
		f.logger.Warn("falling back to local fields", "error", err)
		return f.fallbackFields(text, err.Error())
	}
	return fields
}

func (f *Formatter) tryFormat(ctx context.Context, text string) (core.Fields, error) {
	if strings.TrimSpace(text) == "" {
		return core.Fields{}, fmt.Errorf("empty input text")
	}
	if f.client == nil {
		return core.Fields{}, fmt.Errorf("no generative client configured")
	}

	var parsed formatResponse
	decode := func(content string) error {
		parsed = formatResponse{}
		if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
			return fmt.Errorf("decode format response: %w", err)
		}
		return validateFormatResponse(parsed)
	}

	if err := f.chatWithDecode(ctx, f.systemPrompt, text, decode); err != nil {
		return core.Fields{}, err
	}

	slug := slugify(parsed.Slug)
	if slug == "" {
		return core.Fields{}, fmt.Errorf("response slug %q is not sluggable", parsed.Slug)
	}

	return core.Fields{
		Title:         strings.TrimSpace(parsed.Title),
		Summary:       strings.TrimSpace(parsed.Summary),
		Slug:          slug,
		Tags:          cleanTags(parsed.Tags),
		LocalizedSlug: strings.Join(strings.Fields(parsed.LocalizedSlug), "-"),
		LocalizedTags: cleanTags(parsed.LocalizedTags),
	}, nil
}

// FreeText is the result of an ad hoc transform with a caller-supplied
// instruction.
type FreeText struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Fallback bool   `json:"-"`
}

// FormatFreeText runs the same call shape with a user-supplied instruction.
// It shares FormatItem's totality contract.
func (f *Formatter) FormatFreeText(ctx context.Context, text, instruction string) FreeText {
	result, err := f.tryFreeText(ctx, text, instruction)
	if err != nil {
		f.logger.Warn("free-text transform fell back", "error", err)
		return FreeText{
			Title:    "Error in Processing",
			Summary:  err.Error(),
			Fallback: true,
		}
	}
	return result
}

func (f *Formatter) tryFreeText(ctx context.Context, text, instruction string) (FreeText, error) {
	if f.client == nil {
		return FreeText{}, fmt.Errorf("no generative client configured")
	}

	var parsed FreeText
	decode := func(content string) error {
		parsed = FreeText{}
		if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
			return fmt.Errorf("decode free-text response: %w", err)
		}
		if strings.TrimSpace(parsed.Title) == "" || strings.TrimSpace(parsed.Summary) == "" {
			return fmt.Errorf("free-text response missing title or summary")
		}
		return nil
	}

	if err := f.chatWithDecode(ctx, instruction+freeTextSuffix, text, decode); err != nil {
		return FreeText{}, err
	}
	return parsed, nil
}

// chatWithDecode retries the request when the response does not decode. A
// transport failure aborts immediately; the prompt is never modified between
// attempts.
func (f *Formatter) chatWithDecode(ctx context.Context, systemPrompt, userPrompt string, decode func(string) error) error {
	attempts := f.cfg.DecodeRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := f.client.ChatCompletion(ctx, llm.ChatRequest{
			Model: f.cfg.Model,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: systemPrompt},
				{Role: llm.RoleUser, Content: userPrompt},
			},
			Temperature: f.cfg.Temperature,
		})
		if err != nil {
			return err
		}
		if err := decode(resp.Content); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("decode after %d attempt(s): %w", attempts, lastErr)
}

func validateFormatResponse(r formatResponse) error {
	missing := []string{}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(r.Slug) == "" {
		missing = append(missing, "slug")
	}
	if len(cleanTags(r.Tags)) == 0 {
		missing = append(missing, "tags")
	}
	if strings.TrimSpace(r.LocalizedSlug) == "" {
		missing = append(missing, "localized_slug")
	}
	if len(cleanTags(r.LocalizedTags)) == 0 {
		missing = append(missing, "localized_tags")
	}
	if len(missing) > 0 {
		return fmt.Errorf("format response missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (f *Formatter) fallbackFields(text, reason string) core.Fields {
	stamp := f.now().UTC().Format("20060102150405")

	title := truncate(strings.TrimSpace(text), 72)
	if title == "" {
		title = "Untitled post"
	}
	summary := strings.TrimSpace(text)
	if summary == "" {
		summary = title
	}

	slug := slugify(truncate(text, 48))
	if slug == "" {
		slug = "post"
	}

	return core.Fields{
		Title:          title,
		Summary:        summary,
		Slug:           slug + "-" + stamp,
		Tags:           []string{f.cfg.FallbackTag},
		LocalizedSlug:  f.cfg.FallbackLocalizedTag + "-" + stamp,
		LocalizedTags:  []string{f.cfg.FallbackLocalizedTag},
		Fallback:       true,
		FallbackReason: reason,
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language hint line ("json").
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
