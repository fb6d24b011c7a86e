package driving

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// SearchService provides semantic search to external actors.
type SearchService interface {
	// Search ranks indexed chunks by similarity to query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// TotalIndexed returns the number of indexed chunks.
	TotalIndexed(ctx context.Context) (int, error)
}
