package domain

import "time"

// DefaultTopK is the number of results returned when a caller gives none.
const DefaultTopK = 5

// SearchOptions configures a semantic search query.
type SearchOptions struct {
	// DocumentID restricts candidates to one document. Empty searches all.
	DocumentID string

	// TopK is the maximum number of results. Zero means DefaultTopK.
	TopK int
}

// SearchResult represents a single ranked chunk.
type SearchResult struct {
	ChunkID    string
	DocumentID string

	// Score is the cosine similarity in [-1, 1].
	Score float64

	Content string
	Page    int
	Index   int
}

// EmbeddingRecord is a vector keyed by the hash of the text it encodes.
// Identical text in different chunks or documents shares one record.
type EmbeddingRecord struct {
	ContentHash string
	Vector      []float32
	ModelID     string
	CreatedAt   time.Time
}

// ChunkOutcome pairs a chunk with the result of embedding it.
type ChunkOutcome struct {
	Chunk Chunk

	// Embedded is true when the chunk has a vector in the index.
	Embedded bool

	// Err is the per-chunk embedding failure, if any.
	Err error
}

// IngestResult describes one chunk_document call.
type IngestResult struct {
	DocumentID string
	Generation uint64
	State      DocumentState
	Chunks     []ChunkOutcome
	Embedded   int
	Failed     int

	// Superseded is true when a newer generation committed first and this
	// result was discarded.
	Superseded bool
}
