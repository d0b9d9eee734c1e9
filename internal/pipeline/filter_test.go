package pipeline

import (
	"testing"

	"github.com/bakkerme/postforge/internal/core"
)

func TestItemFilterMatchesRetweets(t *testing.T) {
	filter, err := NewItemFilter("IsRetweet || IsReply")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	skip, err := filter.Skip(core.Item{IsRetweet: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !skip {
		t.Fatalf("expected retweet to match")
	}

	skip, err = filter.Skip(core.Item{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if skip {
		t.Fatalf("expected plain item to pass")
	}
}

func TestItemFilterSeesItemMetadata(t *testing.T) {
	filter, err := NewItemFilter(`Lang != "en" && MediaCount == 0`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	skip, err := filter.Skip(core.Item{Lang: "fr"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !skip {
		t.Fatalf("expected non-english textless item to match")
	}

	skip, err = filter.Skip(core.Item{Lang: "fr", Media: []core.MediaRef{{URL: "u"}}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if skip {
		t.Fatalf("expected item with media to pass")
	}
}

func TestItemFilterRejectsBadExpressions(t *testing.T) {
	if _, err := NewItemFilter("not ( valid"); err == nil {
		t.Fatalf("expected compile error")
	}
}
