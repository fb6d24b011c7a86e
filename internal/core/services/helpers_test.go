package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmind/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docmind/internal/adapters/driven/storage/memory"
	vectormem "github.com/custodia-labs/docmind/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/postprocessors"
)

// --- Mock implementations ---

// stubEmbedder wraps the hashing embedder with call counting, per-text
// failures and per-text gates.
type stubEmbedder struct {
	inner *local.HashingEmbedder

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	block map[string]chan struct{}
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{
		inner: local.NewHashingEmbedder(dims),
		calls: make(map[string]int),
		fail:  make(map[string]error),
		block: make(map[string]chan struct{}),
	}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls[text]++
	err := e.fail[text]
	gate := e.block[text]
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return e.inner.Embed(ctx, text)
}

func (e *stubEmbedder) setFail(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.fail, text)
		return
	}
	e.fail[text] = err
}

// hold makes calls for text block until the returned function is called.
func (e *stubEmbedder) hold(text string) func() {
	gate := make(chan struct{})
	e.mu.Lock()
	e.block[text] = gate
	e.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (e *stubEmbedder) callsFor(text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[text]
}

func (e *stubEmbedder) totalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

func (e *stubEmbedder) Dimensions() int { return e.inner.Dimensions() }
func (e *stubEmbedder) ModelName() string { return e.inner.ModelName() }
func (e *stubEmbedder) Ping(_ context.Context) error { return nil }
func (e *stubEmbedder) Close() error { return nil }

// stubExtractor serves documents from an in-memory file table.
type stubExtractor struct {
	mu    sync.Mutex
	files map[string]string
	calls int
	gate  chan struct{}
}

func newStubExtractor() *stubExtractor {
	return &stubExtractor{files: make(map[string]string)}
}

func (x *stubExtractor) set(path, content string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.files[path] = content
}

func (x *stubExtractor) callCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.calls
}

func (x *stubExtractor) Extract(_ context.Context, path string) (*domain.Document, error) {
	x.mu.Lock()
	x.calls++
	content, ok := x.files[path]
	gate := x.gate
	x.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, &domain.ExtractionError{Path: path, Err: os.ErrNotExist}
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &domain.Document{
		ID:      domain.DocumentID(path),
		URI:     path,
		Title:   stem,
		Content: content,
		Metadata: map[string]any{
			domain.MetaTitle:         stem,
			domain.MetaAuthor:        "Ada",
			domain.MetaPages:         0,
			domain.MetaWordCount:     len(strings.Fields(content)),
			domain.MetaFileType:      "txt",
			domain.MetaFileSizeBytes: int64(len(content)),
			domain.MetaFilePath:      path,
		},
		State: domain.StateIngested,
	}, nil
}

// stubLLM records the last prompt and returns a canned reply.
type stubLLM struct {
	mu     sync.Mutex
	reply  string
	err    error
	prompt string
	opts   driven.GenerateOptions
}

func (m *stubLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompt, m.opts = prompt, opts
	return m.reply, m.err
}

func (m *stubLLM) ModelName() string { return "stub" }
func (m *stubLLM) Ping(_ context.Context) error { return nil }
func (m *stubLLM) Close() error { return nil }

// stubEmbeddingStore is an in-memory driven.EmbeddingStore.
type stubEmbeddingStore struct {
	mu      sync.Mutex
	records map[string]domain.EmbeddingRecord
	getErr  error
}

func newStubEmbeddingStore() *stubEmbeddingStore {
	return &stubEmbeddingStore{records: make(map[string]domain.EmbeddingRecord)}
}

func (s *stubEmbeddingStore) Get(_ context.Context, hash string) (*domain.EmbeddingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *stubEmbeddingStore) Put(_ context.Context, rec domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ContentHash] = rec
	return nil
}

func (s *stubEmbeddingStore) Close() error { return nil }

var errProviderDown = domain.NewProviderError("stub", domain.ProviderUnavailable, errors.New("503"))

// --- Fixture ---

type fixture struct {
	docs      *DocumentService
	search    *SearchService
	embedder  *stubEmbedder
	extractor *stubExtractor
	store     *memory.DocumentStore
	index     *vectormem.Index
	cache     *EmbeddingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithIndex(t, vectormem.New(0))
}

func newFixtureWithIndex(t *testing.T, index *vectormem.Index) *fixture {
	t.Helper()

	emb := newStubEmbedder(64)
	cache, err := NewEmbeddingCache(emb)
	require.NoError(t, err)

	f := &fixture{
		embedder:  emb,
		extractor: newStubExtractor(),
		store:     memory.NewDocumentStore(),
		index:     index,
		cache:     cache,
	}
	f.docs = NewDocumentService(
		f.extractor,
		postprocessors.NewDefaultBuilder(),
		f.store,
		f.index,
		f.cache,
		domain.ChunkingSettings{ChunkSize: domain.DefaultChunkSize, Overlap: domain.DefaultChunkOverlap},
	)
	f.search = NewSearchService(f.store, f.index, f.cache)
	return f
}

func intPtr(v int) *int {
	return &v
}
