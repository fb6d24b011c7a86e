package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.True(t, p.IsValid(), p)
	}
	for _, p := range AllLLMProviders() {
		assert.True(t, p.IsValid(), p)
	}
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProviderNone.IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderCohere.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.False(t, AIProviderLocal.RequiresAPIKey())
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Cohere (cloud)", AIProviderCohere.Description())
	assert.Equal(t, unknownDescription, AIProvider("bogus").Description())
}

func TestValidateChunking(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 500, 50, false},
		{"zero overlap", 1, 0, false},
		{"max overlap", 4, 3, false},
		{"zero size", 0, 0, true},
		{"negative size", -1, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunking(tt.size, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidChunkingParameters)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, AIProviderCohere, cfg.Embedding.Provider)
	assert.Equal(t, "embed-english-v3.0", cfg.Embedding.Model)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, VectorBackendMemory, cfg.Vector.Backend)
	assert.Equal(t, 1024, cfg.EmbeddingDimensionsFor())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad chunking", func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize }},
		{"zero concurrency", func(c *Config) { c.Embedding.Concurrency = 0 }},
		{"negative cache", func(c *Config) { c.Cache.Size = -1 }},
		{"redis without url", func(c *Config) { c.Cache.Store = EmbeddingStoreRedis }},
		{"unknown store", func(c *Config) { c.Cache.Store = "etcd" }},
		{"unknown backend", func(c *Config) { c.Vector.Backend = "faiss" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_EmbeddingDimensionsOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Dimensions = 64
	assert.Equal(t, 64, cfg.EmbeddingDimensionsFor())

	cfg.Embedding.Dimensions = 0
	cfg.Embedding.Model = "unknown-model"
	assert.Equal(t, 0, cfg.EmbeddingDimensionsFor())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{Provider: AIProviderCohere}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderCohere, APIKey: "k"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderLocal}.IsConfigured())
}
