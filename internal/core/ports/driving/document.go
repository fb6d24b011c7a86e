package driving

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// DocumentService exposes document operations to the tool surface and CLI.
type DocumentService interface {
	// ExtractText returns the normalised text of a file.
	ExtractText(ctx context.Context, path string) (*domain.Extraction, error)

	// GetMetadata returns file metadata without chunking.
	GetMetadata(ctx context.Context, path string) (*domain.FileMetadata, error)

	// ChunkDocument splits a file into chunks and, when requested, embeds
	// and indexes them.
	ChunkDocument(ctx context.Context, req ChunkRequest) (*domain.IngestResult, error)

	// Summarize produces a summary of a file at the given detail level.
	Summarize(ctx context.Context, path string, level domain.DetailLevel) (*domain.Summary, error)

	// ListDocuments returns every ingested document.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)

	// GetDocument returns an ingested document by ID.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// RemoveDocument drops a document from the index and corpus.
	RemoveDocument(ctx context.Context, documentID string) error
}

// ChunkRequest configures ChunkDocument. Zero sizes take configured defaults.
type ChunkRequest struct {
	Path string

	// ChunkSize is the window length in characters. Nil means default.
	ChunkSize *int

	// Overlap is the shared characters between windows. Nil means default.
	Overlap *int

	// Index embeds and indexes the chunks when true.
	Index bool
}
