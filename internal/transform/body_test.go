package transform

import (
	"strings"
	"testing"
)

func TestBodyRendererAutolinksURLs(t *testing.T) {
	r := NewBodyRenderer()
	out := r.Render("Read more at https://example.com/post")
	if !strings.Contains(out, `<a href="https://example.com/post"`) {
		t.Fatalf("expected autolinked URL, got %q", out)
	}
}

func TestBodyRendererPreservesLineBreaks(t *testing.T) {
	r := NewBodyRenderer()
	out := r.Render("first line\nsecond line")
	if !strings.Contains(out, "<br") {
		t.Fatalf("expected hard line break, got %q", out)
	}
}

func TestBodyRendererEmptyInput(t *testing.T) {
	r := NewBodyRenderer()
	if out := r.Render(""); strings.Contains(out, "<script") {
		t.Fatalf("unexpected output %q", out)
	}
}
