// Package llm is the narrow contract the coaching orchestrator uses to reach a hosted language model.
package llm

import (
	"context"
	"errors"
)

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrEmptyReply is returned when the model produced no text.
var ErrEmptyReply = errors.New("model returned empty text")

// Message is one conversation turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is a single model call. Decoding parameters are chosen by the orchestrator.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Reply is the model's text with call metadata.
type Reply struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Client converses with a language model.
type Client interface {
	Converse(ctx context.Context, req Request) (Reply, error)
}
