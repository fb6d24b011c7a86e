// Package chunker splits document text into overlapping fixed-size
// character windows.
//
// Window i starts at i*(size-overlap) and ends at min(start+size, len).
// Iteration stops after the window that reaches the end of the text, so the
// windows always cover the whole text and only the last one may be short.
// Offsets count Unicode code points; a window never splits a character.
package chunker

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// Processor splits document content into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker processor. Parameters are validated rather than
// clamped: an invalid combination returns domain.ErrInvalidChunkingParameters.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: domain.DefaultChunkSize,
		overlap:   domain.DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := domain.ValidateChunking(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window length.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Split(doc.ID, doc.Content, p.chunkSize, p.overlap)
}

// Split cuts text into chunks for docID. Empty text yields no chunks.
func Split(docID, text string, size, overlap int) ([]domain.Chunk, error) {
	if err := domain.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []domain.Chunk{}, nil
	}

	stride := size - overlap
	chunks := make([]domain.Chunk, 0, Count(n, size, overlap))

	for start := 0; ; start += stride {
		end := min(start+size, n)
		content := string(runes[start:end])
		index := len(chunks)

		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(docID, index),
			DocumentID:  docID,
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
			Content:     content,
			ContentHash: domain.ContentHash(content),
		})

		if end == n {
			break
		}
	}

	return chunks, nil
}

// Count returns how many chunks Split produces for a text of length
// characters. It assumes valid parameters.
func Count(length, size, overlap int) int {
	switch {
	case length <= 0:
		return 0
	case length <= size:
		return 1
	}
	stride := size - overlap
	// ceil((length - overlap) / stride)
	return (length - overlap + stride - 1) / stride
}
