package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
	"github.com/custodia-labs/docmind/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService extracts, chunks, embeds and summarises documents.
//
// Parsed documents are cached by absolute path until Invalidate is called.
// Each ChunkDocument call takes a new generation for its document; commits
// are serialised per document and an older generation never overwrites a
// newer one.
type DocumentService struct {
	extractor   driven.Extractor
	pipelines   driven.PipelineBuilder
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	cache       *EmbeddingCache
	llmService  driven.LLMService
	watcher     driven.FileWatcher
	chunking    domain.ChunkingSettings
	concurrency int

	extracts singleflight.Group
	parsedMu sync.RWMutex
	parsed   map[string]*domain.Document

	locks     *keyedMutex
	genMu     sync.Mutex
	issued    map[string]uint64
	committed map[string]uint64
}

// NewDocumentService creates a new document service.
// The cache may be nil, in which case indexing fails with
// domain.ErrEmbeddingUnavailable.
func NewDocumentService(
	extractor driven.Extractor,
	pipelines driven.PipelineBuilder,
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	cache *EmbeddingCache,
	chunking domain.ChunkingSettings,
) *DocumentService {
	return &DocumentService{
		extractor:   extractor,
		pipelines:   pipelines,
		docStore:    docStore,
		vectorIndex: vectorIndex,
		cache:       cache,
		chunking:    chunking,
		concurrency: domain.DefaultEmbedConcurrency,
		parsed:      make(map[string]*domain.Document),
		locks:       newKeyedMutex(),
		issued:      make(map[string]uint64),
		committed:   make(map[string]uint64),
	}
}

// SetLLMService sets the generation provider used by Summarize.
func (s *DocumentService) SetLLMService(llm driven.LLMService) {
	s.llmService = llm
}

// SetConcurrency bounds the number of concurrent embedding calls per document.
func (s *DocumentService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// SetFileWatcher registers a watcher that is told about every parsed path.
// The watcher is expected to call Invalidate when a file changes.
func (s *DocumentService) SetFileWatcher(w driven.FileWatcher) {
	s.watcher = w
}

// Invalidate drops the parsed copy of path so the next call re-reads it.
func (s *DocumentService) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.parsedMu.Lock()
	delete(s.parsed, abs)
	s.parsedMu.Unlock()
	s.extracts.Forget(abs)
	logger.Debug("invalidated parsed document %s", abs)
}

// ExtractText returns the normalised text of a file.
func (s *DocumentService) ExtractText(ctx context.Context, path string) (*domain.Extraction, error) {
	doc, err := s.extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return &domain.Extraction{
		DocumentID: doc.ID,
		Text:       doc.Content,
		WordCount:  int(doc.MetaInt(domain.MetaWordCount)),
		Pages:      int(doc.MetaInt(domain.MetaPages)),
		FileType:   doc.MetaString(domain.MetaFileType),
	}, nil
}

// GetMetadata returns file metadata without chunking.
func (s *DocumentService) GetMetadata(ctx context.Context, path string) (*domain.FileMetadata, error) {
	doc, err := s.extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return &domain.FileMetadata{
		DocumentID:    doc.ID,
		Title:         doc.Title,
		Author:        doc.MetaString(domain.MetaAuthor),
		Pages:         int(doc.MetaInt(domain.MetaPages)),
		WordCount:     int(doc.MetaInt(domain.MetaWordCount)),
		FileType:      doc.MetaString(domain.MetaFileType),
		FileSizeBytes: doc.MetaInt(domain.MetaFileSizeBytes),
		FilePath:      doc.URI,
	}, nil
}

// ChunkDocument splits a file into chunks and optionally embeds and indexes
// them. Chunk outcomes are returned in offset order.
func (s *DocumentService) ChunkDocument(ctx context.Context, req driving.ChunkRequest) (*domain.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "document.chunk")
	defer span.End()

	// Step 1: Resolve and validate parameters before doing any work
	size, overlap := s.chunking.ChunkSize, s.chunking.Overlap
	if req.ChunkSize != nil {
		size = *req.ChunkSize
	}
	if req.Overlap != nil {
		overlap = *req.Overlap
	}
	if err := domain.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	if req.Index && s.cache == nil {
		return nil, fmt.Errorf("%w: configure an embedding provider or disable indexing",
			domain.ErrEmbeddingUnavailable)
	}
	pipeline, err := s.pipelines.Build(size, overlap)
	if err != nil {
		return nil, err
	}

	// Step 2: Extract
	src, err := s.extract(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("doc_id", src.ID),
		attribute.Int("chunk_size", size),
		attribute.Int("overlap", overlap),
	)

	// Step 3: Chunk a private copy stamped with a fresh generation
	doc := *src
	doc.Generation = s.nextGeneration(doc.ID)
	chunks, err := pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	result := &domain.IngestResult{
		DocumentID: doc.ID,
		Generation: doc.Generation,
		Chunks:     make([]domain.ChunkOutcome, len(chunks)),
	}
	for i := range chunks {
		chunks[i].Generation = doc.Generation
		result.Chunks[i].Chunk = chunks[i]
	}

	// Step 4: Embed
	var entries []driven.VectorEntry
	if req.Index {
		entries, err = s.embedChunks(ctx, result.Chunks)
		if err != nil {
			failSpan(span, err)
			return nil, err
		}
	}

	// Step 5: Commit
	if err := s.commit(ctx, &doc, chunks, entries, req.Index, result); err != nil {
		failSpan(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("chunks", len(chunks)),
		attribute.Int("embedded", result.Embedded),
		attribute.Int("failed", result.Failed),
		attribute.Bool("superseded", result.Superseded),
	)
	logger.Debug("chunked %s gen=%d chunks=%d embedded=%d failed=%d state=%s",
		doc.ID, doc.Generation, len(chunks), result.Embedded, result.Failed, result.State)
	return result, nil
}

// embedChunks embeds every chunk through the cache. Provider failures are
// recorded on the outcome; only cancellation aborts the batch.
func (s *DocumentService) embedChunks(ctx context.Context, outcomes []domain.ChunkOutcome) ([]driven.VectorEntry, error) {
	vectors := make([][]float32, len(outcomes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range outcomes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c := outcomes[i].Chunk
			vec, err := s.cache.GetOrCompute(gctx, c.ContentHash, c.Content)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("embed chunk %s: %v", c.ID, err)
				outcomes[i].Err = err
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]driven.VectorEntry, 0, len(outcomes))
	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		entries = append(entries, driven.VectorEntry{
			ChunkID:    outcomes[i].Chunk.ID,
			Generation: outcomes[i].Chunk.Generation,
			Vector:     vec,
		})
	}
	return entries, nil
}

// commit publishes a generation unless a newer one got there first.
func (s *DocumentService) commit(
	ctx context.Context,
	doc *domain.Document,
	chunks []domain.Chunk,
	entries []driven.VectorEntry,
	indexed bool,
	result *domain.IngestResult,
) error {
	unlock := s.locks.Lock(doc.ID)
	defer unlock()

	if s.superseded(doc.ID, doc.Generation) {
		result.Superseded = true
		logger.Debug("discarding %s gen=%d: newer generation committed", doc.ID, doc.Generation)
		return nil
	}

	if err := s.vectorIndex.ReplaceDocument(ctx, doc.ID, entries); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	embedded := make(map[string]bool, len(entries))
	for _, e := range entries {
		embedded[e.ChunkID] = true
	}
	for i := range result.Chunks {
		if embedded[result.Chunks[i].Chunk.ID] {
			result.Chunks[i].Embedded = true
			result.Embedded++
		} else if result.Chunks[i].Err != nil {
			result.Failed++
		}
	}

	switch {
	case !indexed:
		doc.State = domain.StateChunked
	case result.Failed > 0:
		doc.State = domain.StatePartiallyEmbedded
	default:
		doc.State = domain.StateFullyEmbedded
	}
	result.State = doc.State

	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if prev, err := s.docStore.GetDocument(ctx, doc.ID); err == nil {
		doc.CreatedAt = prev.CreatedAt
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := s.docStore.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	s.genMu.Lock()
	s.committed[doc.ID] = doc.Generation
	s.genMu.Unlock()
	return nil
}

func (s *DocumentService) nextGeneration(docID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.issued[docID]++
	return s.issued[docID]
}

func (s *DocumentService) superseded(docID string, gen uint64) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.committed[docID] >= gen
}

// Summarize produces a summary of a file at the given detail level.
func (s *DocumentService) Summarize(ctx context.Context, path string, level domain.DetailLevel) (*domain.Summary, error) {
	if !level.IsValid() {
		return nil, fmt.Errorf("%w: unknown detail level %q", domain.ErrInvalidInput, level)
	}
	ctx, span := tracer.Start(ctx, "document.summarize")
	defer span.End()

	doc, err := s.extract(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks, err := s.summaryChunks(ctx, doc)
	if err != nil {
		return nil, err
	}
	text := joinChunks(chunks, domain.SummaryInputLimit)

	summary := &domain.Summary{
		DocumentID:      doc.ID,
		Level:           level,
		SourceWordCount: int(doc.MetaInt(domain.MetaWordCount)),
		FileType:        doc.MetaString(domain.MetaFileType),
	}

	if s.llmService != nil {
		out, err := s.llmService.Generate(ctx, summaryPrompt(level, text), driven.GenerateOptions{
			MaxTokens: level.MaxTokens(),
		})
		switch {
		case err == nil && strings.TrimSpace(out) != "":
			summary.Text = strings.TrimSpace(out)
			summary.Method = domain.SummaryGenerated
			return summary, nil
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			logger.Warn("summarize %s: falling back to extractive: %v", doc.ID, err)
		}
	}

	summary.Text = extractiveSummary(text, level.FallbackSentences())
	summary.Method = domain.SummaryExtractive
	span.SetAttributes(attribute.String("method", string(summary.Method)))
	return summary, nil
}

// summaryChunks returns the committed chunks of doc, or chunks it with the
// default parameters when it has never been chunked.
func (s *DocumentService) summaryChunks(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if _, err := s.docStore.GetDocument(ctx, doc.ID); err == nil {
		chunks, err := s.docStore.GetChunks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if len(chunks) > 0 {
			return chunks, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	pipeline, err := s.pipelines.Build(s.chunking.ChunkSize, s.chunking.Overlap)
	if err != nil {
		return nil, err
	}
	return pipeline.Process(ctx, doc)
}

// ListDocuments returns every ingested document.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]domain.DocumentInfo, 0, len(docs))
	for i := range docs {
		chunks, err := s.docStore.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, domain.DocumentInfo{
			ID:         docs[i].ID,
			URI:        docs[i].URI,
			Title:      docs[i].Title,
			State:      docs[i].State,
			Generation: docs[i].Generation,
			ChunkCount: len(chunks),
			UpdatedAt:  docs[i].UpdatedAt,
		})
	}
	return infos, nil
}

// GetDocument returns an ingested document by ID.
func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDocument, documentID)
	}
	return doc, err
}

// RemoveDocument drops a document from the index and corpus. Ingestions of
// the document still in flight are discarded when they try to commit.
func (s *DocumentService) RemoveDocument(ctx context.Context, documentID string) error {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDocument, documentID)
	}
	if err != nil {
		return err
	}

	if err := s.vectorIndex.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	s.genMu.Lock()
	s.committed[documentID] = s.issued[documentID]
	s.genMu.Unlock()

	if s.watcher != nil && doc.URI != "" {
		if err := s.watcher.Unwatch(doc.URI); err != nil {
			logger.Debug("unwatch %s: %v", doc.URI, err)
		}
	}
	s.Invalidate(doc.URI)
	return nil
}

// extract returns the parsed document for path. Concurrent callers for the
// same path share one extraction, which survives the first caller leaving.
func (s *DocumentService) extract(ctx context.Context, path string) (*domain.Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: file_path is required", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Err: err}
	}

	s.parsedMu.RLock()
	doc, ok := s.parsed[abs]
	s.parsedMu.RUnlock()
	if ok {
		return doc, nil
	}

	ch := s.extracts.DoChan(abs, func() (any, error) {
		doc, err := s.extractor.Extract(context.WithoutCancel(ctx), abs)
		if err != nil {
			return nil, err
		}
		s.parsedMu.Lock()
		s.parsed[abs] = doc
		s.parsedMu.Unlock()

		if s.watcher != nil {
			if err := s.watcher.Watch(abs); err != nil {
				logger.Debug("watch %s: %v", abs, err)
			}
		}
		return doc, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Document), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
