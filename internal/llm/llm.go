// Package llm talks to chat-completion services.
package llm

import (
	"context"
	"errors"
)

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrMissingModel  = errors.New("missing model")
	ErrEmptyResponse = errors.New("completion response has no content")
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion call.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Client completes chat requests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
