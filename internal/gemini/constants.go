package gemini

import "time"

// Default model and timeout settings for provider calls.
// These can be overridden via configuration or environment variables in the future.
const (
	// DefaultGenerationModel is the Gemini model used for answer synthesis.
	DefaultGenerationModel = "gemini-2.5-flash"

	// DefaultEmbeddingModel is the Gemini model used for narrative embeddings.
	DefaultEmbeddingModel = "gemini-embedding-001"

	// DefaultCallTimeout bounds every provider round-trip. A timeout is
	// treated as a provider failure by the caller, never retried here.
	DefaultCallTimeout = 60 * time.Second
)
