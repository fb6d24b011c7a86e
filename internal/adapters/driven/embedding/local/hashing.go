// Package local provides an offline embedding service based on feature
// hashing. Vectors are deterministic and need no network, which makes the
// service suitable for development, tests and air-gapped machines. Texts
// sharing words land near each other, but there is no semantic model.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// Ensure HashingEmbedder implements the interface.
var _ driven.EmbeddingService = (*HashingEmbedder)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 256

// HashingEmbedder maps unigrams and bigrams into a fixed number of signed
// buckets and L2-normalises the result.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder creates an embedder producing vectors of size dims.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingEmbedder{dimensions: dims}
}

// Embed returns the hashed feature vector of text. Text with no word
// characters yields the zero vector.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimensions)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (h *HashingEmbedder) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()

	bucket := int(sum % uint64(h.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Dimensions returns the configured vector size.
func (h *HashingEmbedder) Dimensions() int {
	return h.dimensions
}

// ModelName identifies the embedder and its size, e.g. hashing-256.
func (h *HashingEmbedder) ModelName() string {
	return "hashing-" + strconv.Itoa(h.dimensions)
}

// Ping always succeeds.
func (h *HashingEmbedder) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (h *HashingEmbedder) Close() error {
	return nil
}
