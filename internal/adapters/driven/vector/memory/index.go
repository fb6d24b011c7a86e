// Package memory provides an exact in-process vector index.
//
// Vectors are partitioned by document. A top-level lock guards only the
// partition map and the fixed dimension; each partition has its own lock,
// so writers to one document never block readers of another for long.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docmind/internal/adapters/driven/vector"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory driven.VectorIndex using exhaustive cosine search.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	partitions map[string]*partition
}

type partition struct {
	mu         sync.RWMutex
	generation uint64
	vectors    map[string][]float32
}

// New creates an empty index. A positive dimensions fixes the vector
// length up front; zero lets the first vector decide.
func New(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		partitions: make(map[string]*partition),
	}
}

// Dimensions returns the fixed vector length, or 0 if not yet known.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimensions
}

// checkDim validates n against the index dimension, fixing it if unset.
func (x *Index) checkDim(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	x.mu.RLock()
	d := x.dimensions
	x.mu.RUnlock()
	if d == n {
		return nil
	}
	if d != 0 {
		return &domain.DimensionMismatchError{Want: d, Got: n}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dimensions == 0 {
		x.dimensions = n
		return nil
	}
	if x.dimensions != n {
		return &domain.DimensionMismatchError{Want: x.dimensions, Got: n}
	}
	return nil
}

func (x *Index) partitionFor(docID string, create bool) *partition {
	x.mu.RLock()
	p, ok := x.partitions[docID]
	x.mu.RUnlock()
	if ok || !create {
		return p
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if p, ok = x.partitions[docID]; ok {
		return p
	}
	p = &partition{vectors: make(map[string][]float32)}
	x.partitions[docID] = p
	return p
}

// Add inserts or replaces the vector for a chunk.
func (x *Index) Add(_ context.Context, chunkID, docID string, vec []float32) error {
	if err := x.checkDim(len(vec)); err != nil {
		return err
	}
	p := x.partitionFor(docID, true)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vectors[chunkID] = vec
	return nil
}

// ReplaceDocument swaps the whole partition of docID. Every entry is
// validated before anything changes, the index dimension included.
func (x *Index) ReplaceDocument(_ context.Context, docID string, entries []driven.VectorEntry) error {
	vectors := make(map[string][]float32, len(entries))
	for _, e := range entries {
		if len(e.Vector) != len(entries[0].Vector) {
			return fmt.Errorf("chunk %s: %w", e.ChunkID,
				&domain.DimensionMismatchError{Want: len(entries[0].Vector), Got: len(e.Vector)})
		}
		vectors[e.ChunkID] = e.Vector
	}
	if len(entries) > 0 {
		if err := x.checkDim(len(entries[0].Vector)); err != nil {
			return fmt.Errorf("chunk %s: %w", entries[0].ChunkID, err)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if len(vectors) == 0 {
		delete(x.partitions, docID)
		return nil
	}
	x.partitions[docID] = &partition{generation: entries[0].Generation, vectors: vectors}
	return nil
}

// DeleteDocument removes every vector of docID.
func (x *Index) DeleteDocument(_ context.Context, docID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.partitions, docID)
	return nil
}

// Search scores every candidate and returns the top topK hits.
func (x *Index) Search(ctx context.Context, query []float32, topK int, docFilter string) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, topK)
	}

	x.mu.RLock()
	dims := x.dimensions
	var parts map[string]*partition
	if docFilter != "" {
		if p, ok := x.partitions[docFilter]; ok {
			parts = map[string]*partition{docFilter: p}
		}
	} else {
		parts = make(map[string]*partition, len(x.partitions))
		for id, p := range x.partitions {
			parts[id] = p
		}
	}
	x.mu.RUnlock()

	if len(parts) == 0 {
		return []driven.VectorHit{}, nil
	}
	if dims != 0 && len(query) != dims {
		return nil, &domain.DimensionMismatchError{Want: dims, Got: len(query)}
	}

	var hits []driven.VectorHit
	for docID, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.mu.RLock()
		for chunkID, vec := range p.vectors {
			hits = append(hits, driven.VectorHit{
				ChunkID:    chunkID,
				DocumentID: docID,
				Generation: p.generation,
				Score:      vector.Cosine(query, vec),
			})
		}
		p.mu.RUnlock()
	}

	vector.SortHits(hits)
	if topK < len(hits) {
		hits = hits[:topK]
	}
	if hits == nil {
		hits = []driven.VectorHit{}
	}
	return hits, nil
}

// Len returns the number of vectors, optionally for one document.
func (x *Index) Len(_ context.Context, docFilter string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for id, p := range x.partitions {
		if docFilter != "" && id != docFilter {
			continue
		}
		p.mu.RLock()
		n += len(p.vectors)
		p.mu.RUnlock()
	}
	return n, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}
