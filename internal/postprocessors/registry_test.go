package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &mockProcessor{name: name}, nil
	})

	assert.True(t, r.Has("test"))
	assert.False(t, r.Has("other"))

	proc, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	_, err := NewRegistry().Build("unknown", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_RegisterRejectsWiringMistakes(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	assert.Panics(t, func() { r.Register("chunker", buildChunker) })
	assert.Panics(t, func() { r.Register("", buildChunker) })
	assert.Panics(t, func() { r.Register("nil", nil) })
}

func TestRegistry_BuildPipeline_UnknownStage(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.BuildPipeline([]string{"chunker", "summary"}, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "building summary")
}

func TestRegistry_Names_Sorted(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	assert.Equal(t, []string{"chunker", "pages"}, r.Names())
}

func TestRegistry_BuildPipeline_Defaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	p, err := r.BuildPipeline(DefaultProcessors, ChunkerConfig(4, 1))
	require.NoError(t, err)
	assert.Equal(t, DefaultProcessors, p.Names())

	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d", Content: "ABCDEFGHIJ"})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "GHIJ", chunks[2].Content)
	assert.Equal(t, 1, chunks[2].Metadata["word_count"])
}

func TestBuildChunker(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		wantErr bool
	}{
		{"nil config uses defaults", nil, false},
		{"int values", map[string]any{"chunk_size": 100, "overlap": 10}, false},
		{"int64 values", map[string]any{"chunk_size": int64(100), "overlap": int64(10)}, false},
		{"float64 values", map[string]any{"chunk_size": float64(100), "overlap": float64(10)}, false},
		{"explicit zero size", map[string]any{"chunk_size": 0}, true},
		{"negative overlap", map[string]any{"chunk_size": 10, "overlap": -1}, true},
		{"overlap equals size", map[string]any{"chunk_size": 10, "overlap": 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, err := buildChunker(tt.cfg)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInvalidChunkingParameters))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "chunker", proc.Name())
		})
	}
}

func TestGetIntFromConfig(t *testing.T) {
	v, ok := getIntFromConfig(map[string]any{"k": "nope"}, "k")
	assert.False(t, ok)
	assert.Zero(t, v)

	_, ok = getIntFromConfig(nil, "k")
	assert.False(t, ok)

	v, ok = getIntFromConfig(map[string]any{"k": 7}, "k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestDefaultBuilder(t *testing.T) {
	b := NewDefaultBuilder()

	p, err := b.Build(4, 1)
	require.NoError(t, err)

	doc := &domain.Document{ID: "d", Content: "ABCDEFGHIJ", PageOffsets: []int{0, 5}}
	chunks, err := p.Process(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 2, chunks[2].Page)

	_, err = b.Build(4, 4)
	assert.True(t, errors.Is(err, domain.ErrInvalidChunkingParameters))
}
