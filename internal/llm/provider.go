// Package llm wraps the chat completion backends used for market pricing.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no provider credentials are available.
var ErrNotConfigured = errors.New("llm provider is not configured")

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// UserPrompt builds a request holding a single user message.
func UserPrompt(prompt string, temperature float64) Request {
	return Request{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}
}
