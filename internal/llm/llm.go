package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts a single text-generation provider.
type Client interface {
	// Generate sends one prompt and returns the raw text of the model's reply.
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs.
	Name() string
}

// Request captures the inputs for one generation call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// StatusError reports a non-2xx HTTP response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.Code, e.Message)
}

// ErrEmptyResponse is returned when a provider answers 200 with no usable content.
var ErrEmptyResponse = errors.New("provider response empty content")

// PlaceholderClient is a stub implementation used when no API key is configured.
type PlaceholderClient struct{}

// Generate returns an error; the placeholder never reaches a provider.
func (PlaceholderClient) Generate(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", errors.New("LLM provider not configured")
}

// Name implements Client.
func (PlaceholderClient) Name() string { return "placeholder" }
