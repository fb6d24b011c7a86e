package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
	"github.com/custodia-labs/docmind/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService ranks indexed chunks against a query.
type SearchService struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	cache       *EmbeddingCache
}

// NewSearchService creates a new search service.
// The cache may be nil; searches over a non-empty corpus then fail with
// domain.ErrEmbeddingUnavailable.
func NewSearchService(
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	cache *EmbeddingCache,
) *SearchService {
	return &SearchService{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		cache:       cache,
	}
}

// Search embeds query through the shared cache and returns the closest
// chunks, hydrated with their text.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	ctx, span := tracer.Start(ctx, "search")
	defer span.End()
	span.SetAttributes(attribute.Int("top_k", topK), attribute.String("doc_id", opts.DocumentID))

	if opts.DocumentID != "" {
		if _, err := s.docStore.GetDocument(ctx, opts.DocumentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDocument, opts.DocumentID)
			}
			return nil, err
		}
	}

	n, err := s.vectorIndex.Len(ctx, opts.DocumentID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []domain.SearchResult{}, nil
	}
	if s.cache == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vec, err := s.cache.GetOrCompute(ctx, domain.ContentHash(query), query)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	hits, err := s.vectorIndex.Search(ctx, vec, topK, opts.DocumentID)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			// Replaced by a concurrent re-ingest between search and hydration.
			logger.Debug("search: chunk %s vanished", hit.ChunkID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if chunk.Generation != hit.Generation {
			// The index and the store are mid-commit of a re-ingest, so the
			// score and the text belong to different generations.
			logger.Debug("search: chunk %s is gen %d, hit is gen %d", hit.ChunkID, chunk.Generation, hit.Generation)
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Score:      hit.Score,
			Content:    chunk.Content,
			Page:       chunk.Page,
			Index:      chunk.Index,
		})
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// TotalIndexed returns the number of indexed chunks.
func (s *SearchService) TotalIndexed(ctx context.Context) (int, error) {
	return s.vectorIndex.Len(ctx, "")
}
