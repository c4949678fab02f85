package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient answers with a fixed encouraging template. It is used for local development when
// no model backend is configured.
type MockClient struct{}

// NewMockClient returns a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Converse echoes the latest user turn inside a canned reply.
func (m *MockClient) Converse(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = strings.TrimSpace(req.Messages[i].Text)
			break
		}
	}
	text := fmt.Sprintf("Thanks for asking about %q. Start gently, move slowly with support nearby, and stop if anything hurts. Small steps add up.", last)
	return Reply{
		Text:  text,
		Model: "mock",
		Usage: Usage{PromptTokens: len(strings.Fields(req.System)) + len(strings.Fields(last)), CompletionTokens: len(strings.Fields(text))},
	}, nil
}
