// Package postprocessors turns extracted documents into chunk lists.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages in order. The first stage creates chunks from
// the document text; later stages annotate them.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline returns a pipeline running stages in the order given.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process chunks doc. The result is never nil, carries unique chunk ids and
// has non-decreasing start offsets.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("%s: %s produced %d chunks", doc.ID, stage.Name(), len(out))
		chunks = out
	}

	if chunks == nil {
		return []domain.Chunk{}, nil
	}
	if err := checkOrder(chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// checkOrder rejects stage output that would break chunk addressing.
func checkOrder(chunks []domain.Chunk) error {
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate chunk id %q", domain.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}
		if i > 0 && c.StartOffset < chunks[i-1].StartOffset {
			return fmt.Errorf("%w: chunk %q starts before its predecessor", domain.ErrInvalidInput, c.ID)
		}
	}
	return nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Names returns stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}
