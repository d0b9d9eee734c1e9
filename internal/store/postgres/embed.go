package postgres

import (
	"fmt"
	"html"
	"strings"

	"github.com/bakkerme/postforge/internal/core"
)

// buildEmbedMarkup renders the standard blockquote embed for an item. The
// upstream widget script hydrates it client-side; the markup itself degrades
// to readable HTML.
func buildEmbedMarkup(item core.Item) string {
	var b strings.Builder

	lang := item.Lang
	if lang == "" {
		lang = "en"
	}

	b.WriteString(`<blockquote class="twitter-tweet">`)
	fmt.Fprintf(&b, `<p lang=%q dir="auto">%s</p>`, lang, html.EscapeString(item.Text))

	name := item.Author.Name
	if name == "" {
		name = item.Author.Handle
	}
	fmt.Fprintf(&b, `&mdash; %s (@%s)`, html.EscapeString(name), html.EscapeString(item.Author.Handle))

	if url := item.PermanentURL(); url != "" {
		fmt.Fprintf(&b, ` <a href=%q>%s</a>`, url, item.CreatedAt.Format("January 2, 2006"))
	}
	b.WriteString(`</blockquote>`)

	return b.String()
}
