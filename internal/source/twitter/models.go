package twitter

import (
	"strings"
	"time"

	"github.com/bakkerme/postforge/internal/core"
)

// Upstream timestamps arrive in the classic status format
// ("Mon Jan 02 15:04:05 -0700 2006"); some deployments return RFC 3339.
var createdAtLayouts = []string{time.RubyDate, time.RFC3339}

type tweetsResponse struct {
	Status string         `json:"status"`
	Msg    string         `json:"msg"`
	Tweets []tweetPayload `json:"tweets"`
}

type lastTweetsResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Data   struct {
		Tweets []tweetPayload `json:"tweets"`
	} `json:"data"`
}

type tweetPayload struct {
	ID               string        `json:"id"`
	URL              string        `json:"url"`
	Text             string        `json:"text"`
	Lang             string        `json:"lang"`
	CreatedAt        string        `json:"createdAt"`
	IsReply          bool          `json:"isReply"`
	RetweetedTweetID string        `json:"retweeted_tweet_id"`
	Author           authorPayload `json:"author"`
	ExtendedEntities struct {
		Media []mediaPayload `json:"media"`
	} `json:"extendedEntities"`
}

type authorPayload struct {
	UserName string `json:"userName"`
	Name     string `json:"name"`
}

type mediaPayload struct {
	Type     string `json:"type"`
	MediaURL string `json:"media_url_https"`
}

// toItem validates and converts one payload entry. Entries without an id or
// text are rejected rather than surfaced as partial items.
func (t tweetPayload) toItem() (core.Item, bool) {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Text) == "" {
		return core.Item{}, false
	}

	item := core.Item{
		ID:        t.ID,
		Text:      t.Text,
		URL:       t.URL,
		Lang:      t.Lang,
		IsReply:   t.IsReply,
		IsRetweet: t.RetweetedTweetID != "",
		Author: core.Author{
			Name:   t.Author.Name,
			Handle: t.Author.UserName,
		},
	}

	for _, layout := range createdAtLayouts {
		if at, err := time.Parse(layout, t.CreatedAt); err == nil {
			item.CreatedAt = at
			break
		}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	for _, m := range t.ExtendedEntities.Media {
		if m.MediaURL == "" {
			continue
		}
		item.Media = append(item.Media, core.MediaRef{URL: m.MediaURL, Type: m.Type})
	}

	return item, true
}
