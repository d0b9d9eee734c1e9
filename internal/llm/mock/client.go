package mock

import (
	"context"

	"github.com/bakkerme/postforge/internal/llm"
)

// Client replays queued responses and records every request it sees.
type Client struct {
	Responses []llm.ChatResponse
	Errs      []error
	Calls     []llm.ChatRequest
}

func (c *Client) ChatCompletion(ctx context.Context, request llm.ChatRequest) (llm.ChatResponse, error) {
	_ = ctx
	c.Calls = append(c.Calls, request)

	if len(c.Errs) > 0 {
		err := c.Errs[0]
		c.Errs = c.Errs[1:]
		if err != nil {
			return llm.ChatResponse{}, err
		}
	}
	if len(c.Responses) == 0 {
		return llm.ChatResponse{}, nil
	}
	response := c.Responses[0]
	if len(c.Responses) > 1 {
		c.Responses = c.Responses[1:]
	}
	return response, nil
}
