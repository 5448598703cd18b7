// Package upstream is a streaming client for OpenAI-compatible chat
// completion APIs.
package upstream

import "context"

// Message is one prompt entry sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything needed for one completion call, credentials
// included. Nothing here is read from process-wide state.
type Request struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Messages    []Message
}

// Chunk is one decoded delta from the provider. Reasoning and Content may
// both be empty (role-only or finish chunks).
type Chunk struct {
	Reasoning    string
	Content      string
	FinishReason string
}

// Client opens streaming completions.
type Client interface {
	Open(ctx context.Context, req Request) (Stream, error)
}

// Stream is a finite, non-restartable sequence of chunks. Next returns
// io.EOF once the provider signals completion. Close releases the
// underlying connection and may be called more than once.
type Stream interface {
	Next(ctx context.Context) (Chunk, error)
	Close() error
}
