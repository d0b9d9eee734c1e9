package transform

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// BodyRenderer converts raw item text into the record's HTML body. Post text
// is treated as plain prose: URLs are autolinked and line breaks preserved.
type BodyRenderer struct {
	converter goldmark.Markdown
}

func NewBodyRenderer() *BodyRenderer {
	return &BodyRenderer{
		converter: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render never fails: if conversion errors, it falls back to an escaped
// paragraph so the record body is always usable HTML.
func (r *BodyRenderer) Render(text string) string {
	var buf bytes.Buffer
	if err := r.converter.Convert([]byte(text), &buf); err != nil {
		return "<p>" + stdhtml.EscapeString(strings.TrimSpace(text)) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
