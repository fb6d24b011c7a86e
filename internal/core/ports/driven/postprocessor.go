package driven

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// PostProcessor is one stage of chunk production. A creating stage such as
// the character-window chunker receives nil chunks. An annotating stage such
// as page numbering receives the previous stage's output and returns it
// enriched, without adding, removing or reordering chunks.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into its final chunk list.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// PipelineBuilder creates a pipeline for explicit chunking parameters.
// Invalid parameters are reported as domain.ErrInvalidChunkingParameters.
type PipelineBuilder interface {
	Build(chunkSize, overlap int) (PostProcessorPipeline, error)
}
