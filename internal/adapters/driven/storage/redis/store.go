// Package redis provides a shared durable embedding store backed by Redis.
// Several docmind processes pointed at the same server reuse each other's
// embeddings.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// keyPrefix namespaces embedding keys: docmind:emb:<model>:<content hash>
const keyPrefix = "docmind:emb:"

// EmbeddingStore implements driven.EmbeddingStore using Redis.
// A zero TTL keeps entries until they are evicted by the server.
type EmbeddingStore struct {
	client  *redis.Client
	modelID string
	ttl     time.Duration
}

type storedRecord struct {
	Vector    []float32 `json:"v"`
	CreatedAt time.Time `json:"t"`
}

// NewEmbeddingStore creates a Redis-backed store for modelID.
func NewEmbeddingStore(client *redis.Client, modelID string, ttl time.Duration) *EmbeddingStore {
	return &EmbeddingStore{client: client, modelID: modelID, ttl: ttl}
}

// Open parses a redis:// URL, checks the server is reachable and returns a store.
func Open(ctx context.Context, url, modelID string, ttl time.Duration) (*EmbeddingStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", domain.ErrInvalidInput, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewEmbeddingStore(client, modelID, ttl), nil
}

func (s *EmbeddingStore) key(contentHash string) string {
	return keyPrefix + s.modelID + ":" + contentHash
}

// Get retrieves the vector stored for contentHash.
func (s *EmbeddingStore) Get(ctx context.Context, contentHash string) (*domain.EmbeddingRecord, error) {
	data, err := s.client.Get(ctx, s.key(contentHash)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	return &domain.EmbeddingRecord{
		ContentHash: contentHash,
		Vector:      rec.Vector,
		ModelID:     s.modelID,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// Put stores a record, replacing any previous value and resetting its TTL.
func (s *EmbeddingStore) Put(ctx context.Context, rec domain.EmbeddingRecord) error {
	if len(rec.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	data, err := json.Marshal(storedRecord{Vector: rec.Vector, CreatedAt: created.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	if err := s.client.Set(ctx, s.key(rec.ContentHash), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *EmbeddingStore) Close() error {
	return s.client.Close()
}
