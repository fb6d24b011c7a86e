package driven

import "context"

// VectorIndex stores one vector per chunk and answers exact cosine queries.
//
// The dimension is fixed by the first vector added. Every later vector or
// query of a different length fails with domain.ErrDimensionMismatch.
type VectorIndex interface {
	// Add inserts or replaces the vector for a chunk of docID.
	Add(ctx context.Context, chunkID, docID string, vector []float32) error

	// ReplaceDocument atomically swaps every vector of docID for entries.
	// Readers observe either the old set or the new set.
	ReplaceDocument(ctx context.Context, docID string, entries []VectorEntry) error

	// DeleteDocument removes every vector of docID.
	DeleteDocument(ctx context.Context, docID string) error

	// Search returns at most topK hits ordered by score descending, then
	// chunk ID ascending. A non-empty docFilter restricts candidates.
	Search(ctx context.Context, query []float32, topK int, docFilter string) ([]VectorHit, error)

	// Len returns the number of vectors, optionally for one document.
	Len(ctx context.Context, docFilter string) (int, error)

	// Close releases resources.
	Close() error
}

// VectorEntry is a chunk vector to store.
type VectorEntry struct {
	ChunkID    string
	Generation uint64
	Vector     []float32
}

// VectorHit represents a similarity search result. Generation echoes the
// VectorEntry the score was computed from.
type VectorHit struct {
	ChunkID    string
	DocumentID string
	Generation uint64

	// Score is the cosine similarity in [-1, 1].
	Score float64
}
