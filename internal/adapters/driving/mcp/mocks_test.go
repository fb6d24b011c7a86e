package mcp

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	total   int
	err     error

	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) TotalIndexed(_ context.Context) (int, error) {
	return m.total, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	extraction *domain.Extraction
	metadata   *domain.FileMetadata
	ingest     *domain.IngestResult
	summary    *domain.Summary
	documents  []domain.DocumentInfo
	document   *domain.Document
	err        error

	lastChunk driving.ChunkRequest
	lastLevel domain.DetailLevel
	removed   string
	panicWith any
}

func (m *mockDocumentService) ExtractText(_ context.Context, _ string) (*domain.Extraction, error) {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.extraction, m.err
}

func (m *mockDocumentService) GetMetadata(_ context.Context, _ string) (*domain.FileMetadata, error) {
	return m.metadata, m.err
}

func (m *mockDocumentService) ChunkDocument(_ context.Context, req driving.ChunkRequest) (*domain.IngestResult, error) {
	m.lastChunk = req
	return m.ingest, m.err
}

func (m *mockDocumentService) Summarize(_ context.Context, _ string, level domain.DetailLevel) (*domain.Summary, error) {
	m.lastLevel = level
	return m.summary, m.err
}

func (m *mockDocumentService) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) RemoveDocument(_ context.Context, id string) error {
	m.removed = id
	return m.err
}

func newTestServer(search *mockSearchService, docs *mockDocumentService) *Server {
	s, err := NewServer(&Ports{Search: search, Document: docs}, "test")
	if err != nil {
		panic(err)
	}
	return s
}
