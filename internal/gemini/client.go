// Package gemini adapts the Gemini API to the embedding and
// text-generation boundaries consumed by the vector store and the query
// handler. Calls are synchronous round-trips with an explicit timeout and
// no retries; retry policy belongs to the caller, not this adapter.
package gemini

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"
)

// Client wraps a genai client for both provider boundaries.
type Client struct {
	client         *genai.Client
	generateModel  string
	embeddingModel string
	timeout        time.Duration
}

// NewClient creates a Gemini provider client. It fails when no API key is
// configured (GEMINI_API_KEY or GOOGLE_API_KEY); callers treat that as
// "provider not initialized" and degrade rather than abort.
func NewClient(ctx context.Context) (*Client, error) {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return nil, fmt.Errorf("NewClient: no GEMINI_API_KEY or GOOGLE_API_KEY configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}

	return &Client{
		client:         client,
		generateModel:  DefaultGenerationModel,
		embeddingModel: DefaultEmbeddingModel,
		timeout:        DefaultCallTimeout,
	}, nil
}

// Embed sends one batched embedding request and returns vectors in input
// order, one per text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		}
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Embed: embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("Embed: empty embedding at index %d", i)
		}
		vectors[i] = embedding.Values
	}

	return vectors, nil
}

// Generate runs one synthesis call with the given system instruction and
// user content and returns the model's text.
func (c *Client) Generate(ctx context.Context, systemContext, userContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemContext}},
		},
	}
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: userContext}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.generateModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}

	return text, nil
}
