package chunker

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p, err := New()
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultChunkSize, p.ChunkSize())
		assert.Equal(t, domain.DefaultChunkOverlap, p.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		p, err := New(WithChunkSize(100), WithOverlap(10))
		require.NoError(t, err)
		assert.Equal(t, 100, p.ChunkSize())
		assert.Equal(t, 10, p.Overlap())
	})

	t.Run("overlap equal to chunk size is rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(100))
		assert.ErrorIs(t, err, domain.ErrInvalidChunkingParameters)
	})

	t.Run("zero chunk size is rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(0), WithOverlap(0))
		assert.ErrorIs(t, err, domain.ErrInvalidChunkingParameters)
	})

	t.Run("negative overlap is rejected", func(t *testing.T) {
		_, err := New(WithOverlap(-1))
		assert.ErrorIs(t, err, domain.ErrInvalidChunkingParameters)
	})
}

func TestProcessor_Name(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	assert.Equal(t, "chunker", p.Name())
}

func TestSplit_Empty(t *testing.T) {
	chunks, err := Split("doc", "", 4, 1)
	require.NoError(t, err)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestSplit_InvalidParameters(t *testing.T) {
	_, err := Split("doc", "", 4, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidChunkingParameters)

	_, err = Split("doc", "ABCDEFGHIJ", 4, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidChunkingParameters)
}

func TestSplit_TenCharacters(t *testing.T) {
	chunks, err := Split("doc", "ABCDEFGHIJ", 4, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	want := []struct {
		start, end int
		text       string
	}{
		{0, 4, "ABCD"},
		{3, 7, "DEFG"},
		{6, 10, "GHIJ"},
	}
	for i, w := range want {
		assert.Equal(t, w.start, chunks[i].StartOffset, "chunk %d start", i)
		assert.Equal(t, w.end, chunks[i].EndOffset, "chunk %d end", i)
		assert.Equal(t, w.text, chunks[i].Content, "chunk %d text", i)
		assert.Equal(t, i, chunks[i].Index)
		assert.Equal(t, domain.ChunkID("doc", i), chunks[i].ID)
		assert.Equal(t, domain.ContentHash(w.text), chunks[i].ContentHash)
	}
}

func TestSplit_SizeOne(t *testing.T) {
	chunks, err := Split("doc", "abc", 1, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].Content)
	assert.Equal(t, "b", chunks[1].Content)
	assert.Equal(t, "c", chunks[2].Content)
}

func TestSplit_ShortText(t *testing.T) {
	chunks, err := Split("doc", "hello", 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 5, chunks[0].EndOffset)
}

func TestSplit_ShortFinalChunk(t *testing.T) {
	chunks, err := Split("doc", "ABCDEFGHIJK", 4, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, "JK", chunks[3].Content)
}

func TestSplit_MultiByte(t *testing.T) {
	text := "héllo wörld ✓ café"
	chunks, err := Split("doc", text, 5, 2)
	require.NoError(t, err)

	runes := []rune(text)
	for _, c := range chunks {
		assert.Equal(t, string(runes[c.StartOffset:c.EndOffset]), c.Content)
	}
	assert.Equal(t, len(runes), chunks[len(chunks)-1].EndOffset)
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("determinism ", 40)
	a, err := Split("doc", text, 37, 5)
	require.NoError(t, err)
	b, err := Split("doc", text, 37, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestSplit_Invariants checks coverage, stride and count over random inputs.
func TestSplit_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 300; iter++ {
		size := rng.Intn(40) + 1
		overlap := rng.Intn(size)
		length := rng.Intn(200)

		var sb strings.Builder
		for i := 0; i < length; i++ {
			sb.WriteRune(rune('a' + rng.Intn(26)))
		}
		text := sb.String()

		chunks, err := Split("doc", text, size, overlap)
		require.NoError(t, err)
		require.Len(t, chunks, Count(length, size, overlap), "size=%d overlap=%d len=%d", size, overlap, length)

		if length == 0 {
			continue
		}

		assert.Equal(t, 0, chunks[0].StartOffset)
		assert.Equal(t, length, chunks[len(chunks)-1].EndOffset)

		for i, c := range chunks {
			assert.Less(t, c.StartOffset, c.EndOffset)
			assert.LessOrEqual(t, c.Len(), size)
			assert.Equal(t, text[c.StartOffset:c.EndOffset], c.Content)
			if i < len(chunks)-1 {
				assert.Equal(t, size, c.Len(), "only the final chunk may be short")
				assert.Equal(t, c.EndOffset-overlap, chunks[i+1].StartOffset)
			}
		}
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(0, 4, 1))
	assert.Equal(t, 1, Count(3, 4, 1))
	assert.Equal(t, 1, Count(4, 4, 1))
	assert.Equal(t, 3, Count(10, 4, 1))
	assert.Equal(t, 4, Count(11, 4, 1))
	assert.Equal(t, 3, Count(3, 1, 0))
}

func TestProcessor_Process(t *testing.T) {
	p, err := New(WithChunkSize(4), WithOverlap(1))
	require.NoError(t, err)

	doc := &domain.Document{ID: "doc-1", Content: "ABCDEFGHIJ"}
	chunks, err := p.Process(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, "doc-1", c.DocumentID)
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Process(ctx, &domain.Document{ID: "d", Content: "text"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
