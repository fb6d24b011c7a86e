package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/logger"
)

const cacheShards = 64

// CacheStats is a point-in-time view of cache counters.
type CacheStats struct {
	Hits          uint64
	Misses        uint64
	Joined        uint64
	ProviderCalls uint64
	Failures      uint64
	Entries       int
}

// EmbeddingCache maps content hashes to vectors and guarantees that at most
// one provider call per hash is in flight at any time.
//
// Callers asking for a hash that is already being computed join the running
// computation. The computation is detached from the caller that started it:
// it is cancelled only when every caller waiting on it has gone away. A
// failed computation stores nothing, so the next caller retries.
//
// Returned vectors are shared and must not be modified.
type EmbeddingCache struct {
	embedder driven.EmbeddingService
	store    driven.EmbeddingStore
	shards   [cacheShards]*cacheShard

	hits          atomic.Uint64
	misses        atomic.Uint64
	joined        atomic.Uint64
	providerCalls atomic.Uint64
	failures      atomic.Uint64
}

type cacheShard struct {
	mu       sync.Mutex
	entries  map[string][]float32
	lru      *simplelru.LRU
	inflight map[string]*flight
}

// flight is one computation of one hash. waiters and abandoned are guarded
// by the owning shard's mutex; vec and err are written once before done
// is closed.
type flight struct {
	done      chan struct{}
	vec       []float32
	err       error
	waiters   int
	abandoned bool
	cancel    context.CancelFunc
}

// CacheOption configures an EmbeddingCache.
type CacheOption func(*EmbeddingCache) error

// WithMaxEntries bounds the cache with per-shard LRU eviction.
// Zero leaves the cache unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *EmbeddingCache) error {
		if n < 0 {
			return fmt.Errorf("%w: cache size must not be negative", domain.ErrInvalidInput)
		}
		if n == 0 {
			return nil
		}
		perShard := (n + cacheShards - 1) / cacheShards
		for _, sh := range c.shards {
			lru, err := simplelru.NewLRU(perShard, nil)
			if err != nil {
				return err
			}
			sh.lru = lru
			sh.entries = nil
		}
		return nil
	}
}

// WithEmbeddingStore adds a durable tier consulted before the provider.
// Store errors are logged and otherwise ignored.
func WithEmbeddingStore(store driven.EmbeddingStore) CacheOption {
	return func(c *EmbeddingCache) error {
		c.store = store
		return nil
	}
}

// NewEmbeddingCache creates a cache in front of embedder.
func NewEmbeddingCache(embedder driven.EmbeddingService, opts ...CacheOption) (*EmbeddingCache, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	c := &EmbeddingCache{embedder: embedder}
	for i := range c.shards {
		c.shards[i] = &cacheShard{
			entries:  make(map[string][]float32),
			inflight: make(map[string]*flight),
		}
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ModelName returns the embedding model behind the cache.
func (c *EmbeddingCache) ModelName() string {
	return c.embedder.ModelName()
}

// GetOrCompute returns the vector for contentHash, computing it from text
// on a miss. If ctx ends first, GetOrCompute returns ctx.Err() and leaves
// the computation running for any other waiters.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, contentHash, text string) ([]float32, error) {
	sh := c.shard(contentHash)

	sh.mu.Lock()
	if vec, ok := sh.get(contentHash); ok {
		sh.mu.Unlock()
		c.hits.Add(1)
		return vec, nil
	}

	f, ok := sh.inflight[contentHash]
	switch {
	case !ok:
		f = c.launch(ctx, sh, contentHash, text, nil)
		c.misses.Add(1)
	case f.abandoned:
		// The previous computation lost all its waiters and was cancelled.
		// The new one waits for it to finish before calling the provider.
		f = c.launch(ctx, sh, contentHash, text, f)
		c.misses.Add(1)
	default:
		c.joined.Add(1)
	}
	f.waiters++
	sh.mu.Unlock()

	select {
	case <-f.done:
		return f.vec, f.err
	case <-ctx.Done():
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	select {
	case <-f.done:
		// Finished while we were leaving; the result is still good.
		return f.vec, f.err
	default:
	}

	f.waiters--
	if f.waiters == 0 {
		f.abandoned = true
		f.cancel()
	}
	return nil, ctx.Err()
}

// launch registers and starts a new flight. Caller holds sh.mu.
func (c *EmbeddingCache) launch(ctx context.Context, sh *cacheShard, hash, text string, prev *flight) *flight {
	// Keep the caller's values (trace span) but not its cancellation.
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	sh.inflight[hash] = f

	go func() {
		defer cancel()
		vec, err := c.compute(fctx, hash, text, prev)

		sh.mu.Lock()
		if err == nil {
			sh.put(hash, vec)
		} else {
			c.failures.Add(1)
		}
		if sh.inflight[hash] == f {
			delete(sh.inflight, hash)
		}
		f.vec, f.err = vec, err
		close(f.done)
		sh.mu.Unlock()
	}()

	return f
}

func (c *EmbeddingCache) compute(ctx context.Context, hash, text string, prev *flight) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "embedding_cache.compute")
	defer span.End()
	span.SetAttributes(attribute.String("content_hash", hash))

	if prev != nil {
		// prev was cancelled, so this returns promptly. Waiting even when
		// ctx ends keeps provider calls for this hash strictly serial.
		<-prev.done
		if prev.err == nil {
			return prev.vec, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if c.store != nil {
		rec, err := c.store.Get(ctx, hash)
		switch {
		case err == nil && rec != nil:
			span.SetAttributes(attribute.Bool("durable_hit", true))
			return rec.Vector, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			logger.Warn("embedding store get %s: %v", shortHash(hash), err)
		}
	}

	c.providerCalls.Add(1)
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if len(vec) == 0 {
		err := domain.NewProviderError(c.embedder.ModelName(), domain.ProviderInvalidInput,
			errors.New("empty embedding"))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.store != nil {
		rec := domain.EmbeddingRecord{
			ContentHash: hash,
			Vector:      vec,
			ModelID:     c.embedder.ModelName(),
			CreatedAt:   time.Now(),
		}
		if err := c.store.Put(ctx, rec); err != nil {
			logger.Warn("embedding store put %s: %v", shortHash(hash), err)
		}
	}
	return vec, nil
}

// Peek returns a cached vector without computing it.
func (c *EmbeddingCache) Peek(contentHash string) ([]float32, bool) {
	sh := c.shard(contentHash)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.get(contentHash)
}

// InFlight returns the number of computations currently running.
func (c *EmbeddingCache) InFlight() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		n += len(sh.inflight)
		sh.mu.Unlock()
	}
	return n
}

// Stats returns the current counters.
func (c *EmbeddingCache) Stats() CacheStats {
	entries := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		entries += sh.len()
		sh.mu.Unlock()
	}
	return CacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Joined:        c.joined.Load(),
		ProviderCalls: c.providerCalls.Load(),
		Failures:      c.failures.Load(),
		Entries:       entries,
	}
}

func (c *EmbeddingCache) shard(hash string) *cacheShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(hash))
	return c.shards[h.Sum32()%cacheShards]
}

func (s *cacheShard) get(hash string) ([]float32, bool) {
	if s.lru != nil {
		v, ok := s.lru.Get(hash)
		if !ok {
			return nil, false
		}
		return v.([]float32), true
	}
	v, ok := s.entries[hash]
	return v, ok
}

func (s *cacheShard) put(hash string, vec []float32) {
	if s.lru != nil {
		s.lru.Add(hash, vec)
		return
	}
	s.entries[hash] = vec
}

func (s *cacheShard) len() int {
	if s.lru != nil {
		return s.lru.Len()
	}
	return len(s.entries)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
