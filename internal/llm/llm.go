package llm

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("llm unavailable")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request is one completion round trip. Zero MaxTokens leaves the provider default.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type Completer interface {
	Complete(ctx context.Context, request Request) (string, error)
}
