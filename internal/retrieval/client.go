// Package retrieval queries a reference-content index for passages that ground coaching replies.
package retrieval

import (
	"context"
	"errors"
)

// ErrSearchFailed marks a failed search. Callers treat it as "no grounding available".
var ErrSearchFailed = errors.New("retrieval search failed")

// Query describes one similarity search.
type Query struct {
	Text          string   `json:"query"`
	Collection    string   `json:"collection,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	Limit         int      `json:"limit"`
	MinSimilarity float64  `json:"min_similarity"`
}

// Passage is a ranked search hit with its provenance.
type Passage struct {
	Content     string  `json:"content"`
	SourceTitle string  `json:"source_title"`
	Collection  string  `json:"collection"`
	Score       float64 `json:"score"`
}

// Client is the search contract the orchestrator depends on.
type Client interface {
	Search(ctx context.Context, q Query) ([]Passage, error)
}

// NoopClient returns no passages.
type NoopClient struct{}

// Search performs no lookup.
func (NoopClient) Search(context.Context, Query) ([]Passage, error) { return nil, nil }
