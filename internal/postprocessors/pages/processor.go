// Package pages annotates chunks with the page they start on and simple
// text statistics.
package pages

import (
	"context"
	"strings"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// Processor sets Chunk.Page and the word_count and char_count metadata.
// Offsets and content are left untouched.
type Processor struct{}

// New creates a page annotator.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "pages"
}

// Process annotates each chunk. Input chunks are copied, not mutated.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		meta := make(map[string]any, len(c.Metadata)+2)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta["word_count"] = len(strings.Fields(c.Content))
		meta["char_count"] = c.Len()

		c.Metadata = meta
		c.Page = doc.PageAt(c.StartOffset)
		out[i] = c
	}
	return out, nil
}
