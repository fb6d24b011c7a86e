// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Implementations classify every failure as *domain.ProviderError and never
// retry internally; retry policy belongs to the caller.
//
// Implementations may include:
//   - Cohere (embed-english-v3.0)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local feature hashing for offline use
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1024, 1536).
	// Zero means the size is only known after the first call.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingStore is a durable tier behind the in-memory embedding cache.
// Entries are keyed by content hash and never change once written.
type EmbeddingStore interface {
	// Get returns the record for hash, or domain.ErrNotFound.
	Get(ctx context.Context, contentHash string) (*domain.EmbeddingRecord, error)

	// Put stores a record. Writing an existing hash is a no-op or overwrite.
	Put(ctx context.Context, record domain.EmbeddingRecord) error

	// Close releases resources.
	Close() error
}
