// Package ai provides factory functions for creating the model, cache and
// index adapters from configuration.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	cohereembed "github.com/custodia-labs/docmind/internal/adapters/driven/embedding/cohere"
	"github.com/custodia-labs/docmind/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/docmind/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docmind/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docmind/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/docmind/internal/adapters/driven/llm/anthropic"
	coherellm "github.com/custodia-labs/docmind/internal/adapters/driven/llm/cohere"
	ollamallm "github.com/custodia-labs/docmind/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docmind/internal/adapters/driven/llm/openai"
	redisstore "github.com/custodia-labs/docmind/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/docmind/internal/adapters/driven/storage/sqlite"
	memoryindex "github.com/custodia-labs/docmind/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docmind/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of adapter initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	EmbeddingStore   driven.EmbeddingStore
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that caused fallback.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.EmbeddingStore != nil {
		r.EmbeddingStore.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds every adapter cfg asks for. A missing API key is not fatal:
// the service is left nil and a warning is recorded, so extraction and
// extractive summaries still work. A broken store or index is fatal.
func Init(ctx context.Context, cfg domain.Config) (*InitResult, error) {
	r := &InitResult{}

	embedder, err := CreateEmbeddingService(&cfg.Embedding)
	switch {
	case err != nil:
		r.Warnings = append(r.Warnings, fmt.Sprintf("embeddings disabled: %v", err))
	case embedder == nil:
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"embeddings disabled: provider %s is not configured", cfg.Embedding.Provider))
	default:
		r.EmbeddingService = embedder
	}

	llm, err := CreateLLMService(&cfg.LLM)
	switch {
	case err != nil:
		r.Warnings = append(r.Warnings, fmt.Sprintf("summaries will be extractive: %v", err))
	case llm == nil && cfg.LLM.Provider != domain.AIProviderNone:
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"summaries will be extractive: provider %s is not configured", cfg.LLM.Provider))
	default:
		r.LLMService = llm
	}

	model := cfg.Embedding.Model
	if r.EmbeddingService != nil {
		model = r.EmbeddingService.ModelName()
	}
	if r.EmbeddingStore, err = CreateEmbeddingStore(ctx, cfg.Cache, cfg.DataDir, model); err != nil {
		r.Close()
		return nil, err
	}

	dims := cfg.EmbeddingDimensionsFor()
	if dims == 0 && r.EmbeddingService != nil {
		dims = r.EmbeddingService.Dimensions()
	}
	if r.VectorIndex, err = CreateVectorIndex(cfg.Vector, dims); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured. A positive RateLimit wraps
// the service in a limiter.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderCohere:
		svc, err = cohereembed.NewEmbeddingService(cohereembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderLocal:
		svc = createLocalEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use cohere, openai, ollama or local")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.RateLimit > 0 {
		svc = ratelimit.Wrap(svc, ratelimit.Config{
			RequestsPerSecond: settings.RateLimit,
			BurstSize:         settings.RateBurst,
		})
	}
	return svc, nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderCohere:
		return coherellm.NewLLMService(coherellm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateEmbeddingStore opens the durable embedding tier, or returns nil
// when none is configured.
func CreateEmbeddingStore(ctx context.Context, cache domain.CacheSettings, dataDir, model string) (driven.EmbeddingStore, error) {
	switch cache.Store {
	case "", domain.EmbeddingStoreNone:
		return nil, nil
	case domain.EmbeddingStoreSQLite:
		store, err := sqlite.NewStore(dataDir, model)
		if err != nil {
			return nil, fmt.Errorf("sqlite embedding store: %w", err)
		}
		return store, nil
	case domain.EmbeddingStoreRedis:
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		store, err := redisstore.Open(pctx, cache.RedisURL, model, cache.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("redis embedding store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding store %q", domain.ErrInvalidInput, cache.Store)
	}
}

// CreateVectorIndex creates the configured index. dims may be zero, in which
// case the first vector fixes it.
func CreateVectorIndex(settings domain.VectorSettings, dims int) (driven.VectorIndex, error) {
	switch settings.Backend {
	case "", domain.VectorBackendMemory:
		return memoryindex.New(dims), nil
	case domain.VectorBackendQdrant:
		addr := settings.QdrantAddr
		if addr == "" {
			addr = domain.DefaultQdrantAddr
		}
		collection := settings.QdrantCollection
		if collection == "" {
			collection = domain.DefaultQdrantCollection
		}
		idx, err := qdrant.New(addr, collection, dims)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// ValidateEmbeddingConfig creates the service and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return domain.ErrEmbeddingUnavailable
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates the service and pings it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return domain.ErrLLMUnavailable
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createLocalEmbedding sizes the hashing embedder from the settings or the
// model name.
func createLocalEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		var n int
		if _, err := fmt.Sscanf(settings.Model, "hashing-%d", &n); err == nil && n > 0 {
			dimensions = n
		}
	}
	return local.NewHashingEmbedder(dimensions)
}

// IsUnavailable reports whether err means a service was never configured.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrLLMUnavailable)
}
