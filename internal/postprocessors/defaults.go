package postprocessors

import (
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/postprocessors/chunker"
	"github.com/custodia-labs/docmind/internal/postprocessors/pages"
)

// DefaultProcessors is the processing order used for every document.
var DefaultProcessors = []string{"chunker", "pages"}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("pages", buildPages)
}

// ChunkerConfig builds the chunker config map for explicit parameters.
func ChunkerConfig(chunkSize, overlap int) map[string]map[string]any {
	return map[string]map[string]any{
		"chunker": {
			"chunk_size": chunkSize,
			"overlap":    overlap,
		},
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk
//   - overlap (int): Overlapping characters between chunks
//
// Present keys are passed through unchanged, so invalid values surface as
// domain.ErrInvalidChunkingParameters instead of being clamped.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...)
}

func buildPages(_ map[string]any) (driven.PostProcessor, error) {
	return pages.New(), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Ensure DefaultBuilder implements the interface.
var _ driven.PipelineBuilder = (*DefaultBuilder)(nil)

// DefaultBuilder builds the DefaultProcessors pipeline with per-call
// chunking parameters.
type DefaultBuilder struct {
	registry *Registry
	names    []string
}

// NewDefaultBuilder returns a builder backed by a registry holding the
// built-in processors.
func NewDefaultBuilder() *DefaultBuilder {
	r := NewRegistry()
	RegisterDefaults(r)
	return &DefaultBuilder{registry: r, names: DefaultProcessors}
}

// Build returns a chunker and page annotator pipeline.
func (b *DefaultBuilder) Build(chunkSize, overlap int) (driven.PostProcessorPipeline, error) {
	p, err := b.registry.BuildPipeline(b.names, ChunkerConfig(chunkSize, overlap))
	if err != nil {
		return nil, err
	}
	return p, nil
}
