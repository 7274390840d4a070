package domain

import "context"

// ChatRequest is a single system+user completion exchange.
type ChatRequest struct {
	System      string
	User        string
	Model       string // empty = provider default
	Temperature float32
	MaxTokens   int
	JSONOnly    bool // ask the provider for a JSON-object response format
}

// ChatCompleter issues chat completions. Implementations may fail, time out,
// or return malformed content; callers are expected to degrade locally.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
