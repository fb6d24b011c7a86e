package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderCohere is Cohere cloud API.
	AIProviderCohere AIProvider = "cohere"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderLocal is the offline hashing embedder.
	AIProviderLocal AIProvider = "local"

	// AIProviderNone disables the service.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderCohere, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderLocal:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderCohere || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs without network access to a cloud API.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderLocal
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderCohere:
		return "Cohere (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderLocal:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderCohere,
		AIProviderOpenAI,
		AIProviderOllama,
		AIProviderLocal,
	}
}

// AllLLMProviders returns providers that support text generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderCohere,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderCohere: "embed-english-v3.0",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderLocal:  "hashing-256",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderCohere:    "command-r-plus",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Cohere models
		"embed-english-v3.0":       1024,
		"embed-multilingual-v3.0":  1024,
		"embed-english-light-v3.0": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Offline
		"hashing-256": 256,
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	APIKey string

	// Dimensions overrides the model's known dimension. Zero means lookup.
	Dimensions int

	// Concurrency bounds parallel provider calls per chunk_document call.
	Concurrency int

	// RateLimit is requests per second. Zero disables throttling.
	RateLimit float64

	// RateBurst is the limiter burst size.
	RateBurst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings holds the default chunking parameters.
type ChunkingSettings struct {
	ChunkSize int
	Overlap   int
}

// Validate checks the chunking invariants.
func (c ChunkingSettings) Validate() error {
	return ValidateChunking(c.ChunkSize, c.Overlap)
}

// ValidateChunking rejects size <= 0, overlap < 0 and overlap >= size.
func ValidateChunking(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunkingParameters, size)
	case overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunkingParameters, overlap)
	case overlap >= size:
		return fmt.Errorf("%w: overlap %d must be smaller than chunk_size %d", ErrInvalidChunkingParameters, overlap, size)
	}
	return nil
}

// EmbeddingStoreKind selects the durable embedding tier.
type EmbeddingStoreKind string

// Durable embedding tiers.
const (
	EmbeddingStoreNone   EmbeddingStoreKind = "none"
	EmbeddingStoreSQLite EmbeddingStoreKind = "sqlite"
	EmbeddingStoreRedis  EmbeddingStoreKind = "redis"
)

// CacheSettings configures the embedding cache.
type CacheSettings struct {
	// Size bounds the number of cached vectors. Zero is unbounded.
	Size int

	Store    EmbeddingStoreKind
	RedisURL string

	// RedisTTL expires durable entries. Zero keeps them forever.
	RedisTTL time.Duration
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Vector index backends.
const (
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendQdrant VectorBackend = "qdrant"
)

// VectorSettings configures the vector index.
type VectorSettings struct {
	Backend          VectorBackend
	QdrantAddr       string
	QdrantCollection string
}

// Config holds all process configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Cache     CacheSettings
	Vector    VectorSettings

	// DataDir holds the sqlite embedding store.
	DataDir string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// TraceExporter is "none" or "stdout".
	TraceExporter string
}

// Default configuration values.
const (
	DefaultChunkSize        = 500
	DefaultChunkOverlap     = 50
	DefaultEmbedConcurrency = 8
	DefaultQdrantAddr       = "localhost:6334"
	DefaultQdrantCollection = "docmind_chunks"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Embedding: EmbeddingSettings{
			Provider:    AIProviderCohere,
			Model:       DefaultEmbeddingModels()[AIProviderCohere],
			Concurrency: DefaultEmbedConcurrency,
			RateBurst:   1,
		},
		LLM: LLMSettings{
			Provider: AIProviderCohere,
			Model:    DefaultLLMModels()[AIProviderCohere],
		},
		Chunking: ChunkingSettings{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		Cache: CacheSettings{
			Store: EmbeddingStoreNone,
		},
		Vector: VectorSettings{
			Backend:          VectorBackendMemory,
			QdrantAddr:       DefaultQdrantAddr,
			QdrantCollection: DefaultQdrantCollection,
		},
		LogLevel:      "warn",
		TraceExporter: "none",
	}
}

// Validate rejects configuration that cannot start the server.
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if c.Embedding.Concurrency <= 0 {
		return fmt.Errorf("%w: embedding concurrency must be positive", ErrInvalidInput)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: cache size must not be negative", ErrInvalidInput)
	}
	switch c.Cache.Store {
	case EmbeddingStoreNone, EmbeddingStoreSQLite:
	case EmbeddingStoreRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("%w: redis embedding store requires REDIS_URL", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown embedding store %q", ErrInvalidInput, c.Cache.Store)
	}
	switch c.Vector.Backend {
	case VectorBackendMemory, VectorBackendQdrant:
	default:
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidInput, c.Vector.Backend)
	}
	return nil
}

// EmbeddingDimensionsFor returns the configured or known dimension for the
// embedding model. Zero means unknown until the first vector arrives.
func (c Config) EmbeddingDimensionsFor() int {
	if c.Embedding.Dimensions > 0 {
		return c.Embedding.Dimensions
	}
	return EmbeddingDimensions()[c.Embedding.Model]
}
