// Package llm wraps the Google GenAI client behind the two collaborator
// contracts the core depends on: text embedding and text completion.
// Every external call is bounded by a short timeout; callers are expected
// to degrade to a safe default when a call fails.
package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	embeddingModel = "text-embedding-004"
	chatModel      = "gemini-2.0-flash"

	// callTimeout bounds every collaborator call. A hung embedding or
	// classification request stalls only the calling loop, never the process.
	callTimeout = 10 * time.Second
)

// Embedder provides text embedding capability.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	// Vector dimensionality is fixed for the lifetime of a store.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer provides free-text completion capability.
type Completer interface {
	// Complete sends a prompt and returns the raw model reply.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client wraps the Google GenAI client and implements Embedder and Completer.
type Client struct {
	client *genai.Client
}

// NewClient creates a new LLM client with the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client}, nil
}

// Embed generates an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.client.Models.EmbedContent(ctx, embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embeddings[0].Values, nil
}

// Complete sends a prompt to the chat model and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, chatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty model reply")
	}

	return text, nil
}

// Ensure Client implements both collaborator contracts
var _ Embedder = (*Client)(nil)
var _ Completer = (*Client)(nil)
