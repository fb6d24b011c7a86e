// Package vector holds helpers shared by the vector index backends.
package vector

import (
	"math"
	"sort"

	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// Cosine returns the cosine similarity of a and b.
// A zero-norm vector scores 0. Lengths must already match.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SortHits orders hits by score descending, then chunk ID ascending.
func SortHits(hits []driven.VectorHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
