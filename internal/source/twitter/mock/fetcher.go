package mock

import (
	"context"

	"github.com/bakkerme/postforge/internal/core"
)

// Fetcher serves canned items for tests.
type Fetcher struct {
	ItemsByID   map[string]core.Item
	AuthorItems map[string][]core.Item
	IDsErr      error
	AuthorErr   error
	IDCalls     [][]string
	AuthorCalls []string
}

func (f *Fetcher) FetchByIDs(ctx context.Context, ids []string) ([]core.Item, error) {
	_ = ctx
	f.IDCalls = append(f.IDCalls, ids)
	if f.IDsErr != nil {
		return nil, f.IDsErr
	}
	items := make([]core.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := f.ItemsByID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *Fetcher) FetchByAuthor(ctx context.Context, handle string) ([]core.Item, error) {
	_ = ctx
	f.AuthorCalls = append(f.AuthorCalls, handle)
	if f.AuthorErr != nil {
		return nil, f.AuthorErr
	}
	return f.AuthorItems[handle], nil
}
