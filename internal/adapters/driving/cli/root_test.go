package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
)

// mockSearchService returns one canned result.
type mockSearchService struct {
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return []domain.SearchResult{{
		ChunkID:    "doc-1:000000",
		DocumentID: "doc-1",
		Score:      0.95,
		Content:    "This is a matching chunk",
		Page:       2,
	}}, nil
}

func (m *mockSearchService) TotalIndexed(_ context.Context) (int, error) {
	return 1, nil
}

// mockDocumentService records the requests it receives.
type mockDocumentService struct {
	err       error
	chunkReqs []driving.ChunkRequest
	lastLevel domain.DetailLevel
}

func (m *mockDocumentService) ExtractText(_ context.Context, _ string) (*domain.Extraction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Extraction{DocumentID: "doc-1", Text: "Extracted body text", WordCount: 3, FileType: "txt"}, nil
}

func (m *mockDocumentService) GetMetadata(_ context.Context, path string) (*domain.FileMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.FileMetadata{
		DocumentID:    "doc-1",
		Title:         "Quarterly Report",
		Author:        "Ada Lovelace",
		Pages:         4,
		WordCount:     1200,
		FileType:      "pdf",
		FileSizeBytes: 2048,
		FilePath:      path,
	}, nil
}

func (m *mockDocumentService) ChunkDocument(_ context.Context, req driving.ChunkRequest) (*domain.IngestResult, error) {
	m.chunkReqs = append(m.chunkReqs, req)
	if m.err != nil {
		return nil, m.err
	}
	chunk := domain.Chunk{ID: "doc-1:000000", DocumentID: "doc-1", StartOffset: 0, EndOffset: 19, Content: "Extracted body text", Page: 1}
	res := &domain.IngestResult{
		DocumentID: "doc-1",
		Generation: 1,
		State:      domain.StateChunked,
		Chunks:     []domain.ChunkOutcome{{Chunk: chunk}},
	}
	if req.Index {
		res.State = domain.StateFullyEmbedded
		res.Chunks[0].Embedded = true
		res.Embedded = 1
	}
	return res, nil
}

func (m *mockDocumentService) Summarize(_ context.Context, _ string, level domain.DetailLevel) (*domain.Summary, error) {
	m.lastLevel = level
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Summary{
		DocumentID:      "doc-1",
		Text:            "A short summary.",
		Level:           level,
		Method:          domain.SummaryExtractive,
		SourceWordCount: 3,
	}, nil
}

func (m *mockDocumentService) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	return nil, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrUnknownDocument
}

func (m *mockDocumentService) RemoveDocument(_ context.Context, _ string) error {
	return m.err
}

var errMock = errors.New("mock failure")

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() (*mockSearchService, *mockDocumentService, func()) {
	oldSearch, oldDocs := searchService, documentService
	search := &mockSearchService{}
	docs := &mockDocumentService{}
	SetServices(search, docs)
	return search, docs, func() {
		SetServices(oldSearch, oldDocs)
	}
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
