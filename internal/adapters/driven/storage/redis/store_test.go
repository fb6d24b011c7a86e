package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// setupTestRedis creates a test Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return client, mr
}

func TestEmbeddingStore_PutGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewEmbeddingStore(client, "embed-english-v3.0", 0)
	defer store.Close()
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := store.Put(ctx, domain.EmbeddingRecord{
		ContentHash: "abc",
		Vector:      []float32{0.5, -1, 2},
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.ContentHash != "abc" {
		t.Errorf("expected hash abc, got %s", rec.ContentHash)
	}
	if rec.ModelID != "embed-english-v3.0" {
		t.Errorf("expected model embed-english-v3.0, got %s", rec.ModelID)
	}
	if len(rec.Vector) != 3 || rec.Vector[0] != 0.5 || rec.Vector[1] != -1 || rec.Vector[2] != 2 {
		t.Errorf("unexpected vector %v", rec.Vector)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Errorf("expected created %v, got %v", created, rec.CreatedAt)
	}
}

func TestEmbeddingStore_GetMissing(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewEmbeddingStore(client, "m", 0)
	defer store.Close()

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEmbeddingStore_KeyLayout(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewEmbeddingStore(client, "m", 0)
	defer store.Close()

	if err := store.Put(context.Background(), domain.EmbeddingRecord{ContentHash: "h", Vector: []float32{1}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !mr.Exists("docmind:emb:m:h") {
		t.Errorf("expected key docmind:emb:m:h, have %v", mr.Keys())
	}
}

func TestEmbeddingStore_ModelIsolation(t *testing.T) {
	client, _ := setupTestRedis(t)
	a := NewEmbeddingStore(client, "a", 0)
	b := NewEmbeddingStore(client, "b", 0)
	ctx := context.Background()

	if err := a.Put(ctx, domain.EmbeddingRecord{ContentHash: "h", Vector: []float32{1}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := b.Get(ctx, "h"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound across models, got %v", err)
	}
}

func TestEmbeddingStore_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewEmbeddingStore(client, "m", time.Hour)
	ctx := context.Background()

	if err := store.Put(ctx, domain.EmbeddingRecord{ContentHash: "h", Vector: []float32{1}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ttl := mr.TTL("docmind:emb:m:h"); ttl != time.Hour {
		t.Errorf("expected TTL 1h, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.Get(ctx, "h"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected expired entry to be ErrNotFound, got %v", err)
	}
}

func TestEmbeddingStore_PutEmptyVector(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewEmbeddingStore(client, "m", 0)

	err := store.Put(context.Background(), domain.EmbeddingRecord{ContentHash: "h"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	_, mr := setupTestRedis(t)

	store, err := Open(context.Background(), "redis://"+mr.Addr(), "m", 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if _, err := Open(context.Background(), "not a url", "m", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad url, got %v", err)
	}
}
