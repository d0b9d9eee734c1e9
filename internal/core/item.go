package core

import "time"

// Author identifies the account an item was posted from.
type Author struct {
	Name   string
	Handle string
}

// MediaRef points at an attachment on the upstream post.
type MediaRef struct {
	URL  string
	Type string
}

// Item is one raw post fetched from the upstream content API. Items are
// ephemeral: they exist between fetch and persist and are never stored as-is.
type Item struct {
	ID        string
	Text      string
	Author    Author
	URL       string
	Lang      string
	CreatedAt time.Time
	Media     []MediaRef
	IsReply   bool
	IsRetweet bool
}

// PermanentURL returns the canonical upstream URL for the item, deriving one
// from the author handle and id when the API did not include it.
func (i Item) PermanentURL() string {
	if i.URL != "" {
		return i.URL
	}
	if i.Author.Handle == "" || i.ID == "" {
		return ""
	}
	return "https://twitter.com/" + i.Author.Handle + "/status/" + i.ID
}
