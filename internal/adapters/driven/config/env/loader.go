// Package env builds the process configuration from defaults, the TOML
// config file, .env files and the environment, in increasing precedence.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docmind/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// binding ties an environment variable to its TOML key.
type binding struct {
	env   string
	key   string
	apply func(cfg *domain.Config, value string) error
}

var bindings = []binding{
	{"EMBEDDING_PROVIDER", "embedding.provider", func(c *domain.Config, v string) error {
		c.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
		return nil
	}},
	{"EMBEDDING_MODEL", "embedding.model", func(c *domain.Config, v string) error {
		c.Embedding.Model = v
		return nil
	}},
	{"EMBEDDING_BASE_URL", "embedding.base_url", func(c *domain.Config, v string) error {
		c.Embedding.BaseURL = v
		return nil
	}},
	{"EMBEDDING_DIMENSIONS", "embedding.dimensions", intField(func(c *domain.Config) *int { return &c.Embedding.Dimensions })},
	{"EMBED_CONCURRENCY", "embedding.concurrency", intField(func(c *domain.Config) *int { return &c.Embedding.Concurrency })},
	{"EMBED_RATE_LIMIT", "embedding.rate_limit", func(c *domain.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Embedding.RateLimit = f
		return nil
	}},
	{"EMBED_RATE_BURST", "embedding.rate_burst", intField(func(c *domain.Config) *int { return &c.Embedding.RateBurst })},
	{"CHUNK_SIZE", "chunking.chunk_size", intField(func(c *domain.Config) *int { return &c.Chunking.ChunkSize })},
	{"CHUNK_OVERLAP", "chunking.overlap", intField(func(c *domain.Config) *int { return &c.Chunking.Overlap })},
	{"LLM_PROVIDER", "llm.provider", func(c *domain.Config, v string) error {
		c.LLM.Provider = domain.AIProvider(strings.ToLower(v))
		return nil
	}},
	{"LLM_MODEL", "llm.model", func(c *domain.Config, v string) error {
		c.LLM.Model = v
		return nil
	}},
	{"LLM_BASE_URL", "llm.base_url", func(c *domain.Config, v string) error {
		c.LLM.BaseURL = v
		return nil
	}},
	{"EMBEDDING_CACHE_SIZE", "cache.size", intField(func(c *domain.Config) *int { return &c.Cache.Size })},
	{"EMBEDDING_STORE", "cache.store", func(c *domain.Config, v string) error {
		c.Cache.Store = domain.EmbeddingStoreKind(strings.ToLower(v))
		return nil
	}},
	{"REDIS_URL", "cache.redis_url", func(c *domain.Config, v string) error {
		c.Cache.RedisURL = v
		return nil
	}},
	{"REDIS_TTL", "cache.redis_ttl", func(c *domain.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Cache.RedisTTL = d
		return nil
	}},
	{"DOCMIND_DATA_DIR", "data_dir", func(c *domain.Config, v string) error {
		c.DataDir = v
		return nil
	}},
	{"VECTOR_BACKEND", "vector.backend", func(c *domain.Config, v string) error {
		c.Vector.Backend = domain.VectorBackend(strings.ToLower(v))
		return nil
	}},
	{"QDRANT_ADDR", "vector.qdrant_addr", func(c *domain.Config, v string) error {
		c.Vector.QdrantAddr = v
		return nil
	}},
	{"QDRANT_COLLECTION", "vector.qdrant_collection", func(c *domain.Config, v string) error {
		c.Vector.QdrantCollection = v
		return nil
	}},
	{"DOCMIND_LOG_LEVEL", "log.level", func(c *domain.Config, v string) error {
		c.LogLevel = strings.ToLower(v)
		return nil
	}},
	{"DOCMIND_TRACE", "trace.exporter", func(c *domain.Config, v string) error {
		c.TraceExporter = strings.ToLower(v)
		return nil
	}},
}

// apiKeyEnv names the API key variable for each cloud provider.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderCohere:    "COHERE_API_KEY",
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

func intField(field func(*domain.Config) *int) func(*domain.Config, string) error {
	return func(c *domain.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

// Load builds the configuration for configDir (default ~/.docmind) using
// the process environment.
func Load(configDir string) (domain.Config, error) {
	return LoadWith(configDir, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(configDir string, lookup LookupFunc) (domain.Config, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return domain.Config{}, fmt.Errorf("config dir: %w", err)
		}
		configDir = dir
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return domain.Config{}, fmt.Errorf("config file: %w", err)
	}

	dotenv, err := readDotenv(filepath.Join(configDir, ".env"), ".env")
	if err != nil {
		return domain.Config{}, err
	}

	return build(store, dotenv, lookup, configDir)
}

// build applies each layer in order: defaults, TOML, .env, environment.
func build(store driven.ConfigStore, dotenv map[string]string, lookup LookupFunc, configDir string) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	cfg.DataDir = filepath.Join(configDir, "data")
	defaultEmbedModel, defaultLLMModel := true, true

	for _, b := range bindings {
		value, source, ok := resolve(b, store, dotenv, lookup)
		if !ok {
			continue
		}
		if err := b.apply(&cfg, value); err != nil {
			return domain.Config{}, fmt.Errorf("%w: %s=%q: %v", domain.ErrInvalidInput, source, value, err)
		}
		switch b.env {
		case "EMBEDDING_MODEL":
			defaultEmbedModel = false
		case "LLM_MODEL":
			defaultLLMModel = false
		}
	}

	// A provider switch without an explicit model takes that provider's default.
	if defaultEmbedModel {
		cfg.Embedding.Model = domain.DefaultEmbeddingModels()[cfg.Embedding.Provider]
	}
	if defaultLLMModel {
		cfg.LLM.Model = domain.DefaultLLMModels()[cfg.LLM.Provider]
	}

	cfg.Embedding.APIKey = apiKey(cfg.Embedding.Provider, dotenv, lookup)
	cfg.LLM.APIKey = apiKey(cfg.LLM.Provider, dotenv, lookup)

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// resolve returns the highest-precedence value for b and where it came from.
func resolve(b binding, store driven.ConfigStore, dotenv map[string]string, lookup LookupFunc) (string, string, bool) {
	if v, ok := lookup(b.env); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), b.env, true
	}
	if v, ok := dotenv[b.env]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), b.env, true
	}
	if v, ok := store.Get(b.key); ok {
		return strings.TrimSpace(fmt.Sprint(v)), b.key, true
	}
	return "", "", false
}

func apiKey(provider domain.AIProvider, dotenv map[string]string, lookup LookupFunc) string {
	name, ok := apiKeyEnv[provider]
	if !ok {
		return ""
	}
	if v, ok := lookup(name); ok && v != "" {
		return v
	}
	return dotenv[name]
}

// readDotenv merges .env files; later files win. Missing files are skipped.
func readDotenv(paths ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}
