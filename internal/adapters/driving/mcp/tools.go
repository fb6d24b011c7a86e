package mcp

import (
	"context"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driving"
	"github.com/custodia-labs/docmind/internal/logger"
)

// previewLength is the number of characters of chunk text shown by chunk_document.
const previewLength = 200

// FileInput is the input schema for tools that take a single file.
type FileInput struct {
	FilePath string `json:"file_path" jsonschema:"absolute path to the document file"`
}

// ExtractTextOutput is the output schema for extract_text.
type ExtractTextOutput struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	Pages     int    `json:"pages"`
	FileType  string `json:"file_type"`
}

// ChunkInput is the input schema for chunk_document.
type ChunkInput struct {
	FilePath  string `json:"file_path" jsonschema:"absolute path to the document file"`
	ChunkSize *int   `json:"chunk_size,omitempty" jsonschema:"target chunk size in characters (default 500)"`
	Overlap   *int   `json:"overlap,omitempty" jsonschema:"overlap between chunks in characters (default 50)"`
	Index     *bool  `json:"index,omitempty" jsonschema:"embed and index the chunks for search (default true)"`
}

// ChunkOutput is the output schema for chunk_document.
type ChunkOutput struct {
	DocID       string              `json:"doc_id"`
	Generation  uint64              `json:"generation"`
	State       string              `json:"state,omitempty"`
	Superseded  bool                `json:"superseded,omitempty"`
	TotalChunks int                 `json:"total_chunks"`
	Embedded    int                 `json:"embedded"`
	Failed      int                 `json:"failed"`
	Chunks      []ChunkResultOutput `json:"chunks"`
}

// ChunkResultOutput represents a single chunk.
type ChunkResultOutput struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	ContentHash string `json:"content_hash"`
	Text        string `json:"text"`
	WordCount   int    `json:"word_count"`
	Page        *int   `json:"page"`
	Error       string `json:"error,omitempty"`
}

// SearchInput is the input schema for search_chunks.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	DocID string `json:"doc_id,omitempty" jsonschema:"optional document ID to scope the search"`
	TopK  *int   `json:"top_k,omitempty" jsonschema:"number of results to return (default 5)"`
}

// SearchOutput is the output schema for search_chunks.
type SearchOutput struct {
	Query        string               `json:"query"`
	Results      []SearchResultOutput `json:"results"`
	TotalIndexed int                  `json:"total_indexed"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
	Page    *int    `json:"page"`
}

// SummarizeInput is the input schema for summarize_document.
type SummarizeInput struct {
	FilePath    string `json:"file_path" jsonschema:"absolute path to the document file"`
	DetailLevel string `json:"detail_level,omitempty" jsonschema:"brief, standard or detailed (default brief)"`
}

// SummarizeOutput is the output schema for summarize_document.
type SummarizeOutput struct {
	Summary         string `json:"summary"`
	DetailLevel     string `json:"detail_level"`
	Method          string `json:"method"`
	SourceWordCount int    `json:"source_word_count"`
	FileType        string `json:"file_type"`
}

// MetadataOutput is the output schema for get_metadata.
type MetadataOutput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Pages         int    `json:"pages"`
	WordCount     int    `json:"word_count"`
	FileType      string `json:"file_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	FilePath      string `json:"file_path"`
}

// ListInput is the empty input schema for list_documents.
type ListInput struct{}

// ListOutput is the output schema for list_documents.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
}

// DocumentOutput represents an ingested document.
type DocumentOutput struct {
	DocID      string `json:"doc_id"`
	URI        string `json:"uri"`
	Title      string `json:"title"`
	State      string `json:"state"`
	Generation uint64 `json:"generation"`
	ChunkCount int    `json:"chunk_count"`
}

// RemoveInput is the input schema for remove_document.
type RemoveInput struct {
	DocID string `json:"doc_id" jsonschema:"ID of the document to remove"`
}

// RemoveOutput is the output schema for remove_document.
type RemoveOutput struct {
	DocID   string `json:"doc_id"`
	Removed bool   `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_text",
		Description: "Extract full text content from a document (PDF, DOCX, TXT, Markdown, HTML)",
	}, guard("extract_text", s.handleExtractText))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chunk_document",
		Description: "Split a document into overlapping chunks for RAG. Optionally indexes them for semantic search.",
	}, guard("chunk_document", s.handleChunkDocument))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Semantic search across indexed document chunks",
	}, guard("search_chunks", s.handleSearch))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize_document",
		Description: "Generate a summary of a document. Supports brief, standard, and detailed summaries.",
	}, guard("summarize_document", s.handleSummarize))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_metadata",
		Description: "Extract document metadata (title, author, page count, word count, file type)",
	}, guard("get_metadata", s.handleGetMetadata))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List documents that have been chunked in this session",
	}, guard("list_documents", s.handleListDocuments))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document and its chunks from the search index",
	}, guard("remove_document", s.handleRemoveDocument))
}

// guard turns every failure, including a panic, into a structured tool error.
func guard[In, Out any](name string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (res *mcp.CallToolResult, out Out, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("tool %s panicked: %v", name, r)
				var zero Out
				res, out = nil, zero
				err = &ToolError{Kind: domain.KindInternal, Message: fmt.Sprintf("%s: internal error", name)}
			}
		}()

		res, out, err = h(ctx, req, in)
		if err != nil {
			logger.Debug("tool %s failed: %v", name, err)
			var zero Out
			return nil, zero, toToolError(err)
		}
		return res, out, nil
	}
}

func (s *Server) handleExtractText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FileInput,
) (*mcp.CallToolResult, ExtractTextOutput, error) {
	ext, err := s.ports.Document.ExtractText(ctx, input.FilePath)
	if err != nil {
		return nil, ExtractTextOutput{}, err
	}
	return nil, ExtractTextOutput{
		Text:      ext.Text,
		WordCount: ext.WordCount,
		Pages:     ext.Pages,
		FileType:  ext.FileType,
	}, nil
}

func (s *Server) handleChunkDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChunkInput,
) (*mcp.CallToolResult, ChunkOutput, error) {
	index := true
	if input.Index != nil {
		index = *input.Index
	}

	res, err := s.ports.Document.ChunkDocument(ctx, driving.ChunkRequest{
		Path:      input.FilePath,
		ChunkSize: input.ChunkSize,
		Overlap:   input.Overlap,
		Index:     index,
	})
	if err != nil {
		return nil, ChunkOutput{}, err
	}

	output := ChunkOutput{
		DocID:       res.DocumentID,
		Generation:  res.Generation,
		State:       res.State.String(),
		Superseded:  res.Superseded,
		TotalChunks: len(res.Chunks),
		Embedded:    res.Embedded,
		Failed:      res.Failed,
		Chunks:      make([]ChunkResultOutput, len(res.Chunks)),
	}
	for i, outcome := range res.Chunks {
		c := outcome.Chunk
		wordCount, _ := c.Metadata["word_count"].(int)
		output.Chunks[i] = ChunkResultOutput{
			ID:          c.ID,
			Index:       c.Index,
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			ContentHash: c.ContentHash,
			Text:        preview(c.Content),
			WordCount:   wordCount,
			Page:        pageOrNil(c.Page),
		}
		if outcome.Err != nil {
			output.Chunks[i].Error = outcome.Err.Error()
		}
	}
	return nil, output, nil
}

// handleSearch handles the search_chunks tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := domain.DefaultTopK
	if input.TopK != nil {
		if *input.TopK <= 0 {
			return nil, SearchOutput{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, *input.TopK)
		}
		topK = *input.TopK
	}

	results, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{
		DocumentID: input.DocID,
		TopK:       topK,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	total, err := s.ports.Search.TotalIndexed(ctx)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:        input.Query,
		Results:      make([]SearchResultOutput, len(results)),
		TotalIndexed: total,
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID: results[i].ChunkID,
			DocID:   results[i].DocumentID,
			Score:   roundScore(results[i].Score),
			Text:    results[i].Content,
			Page:    pageOrNil(results[i].Page),
		}
	}
	return nil, output, nil
}

func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, SummarizeOutput, error) {
	level, err := domain.ParseDetailLevel(input.DetailLevel)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}

	summary, err := s.ports.Document.Summarize(ctx, input.FilePath, level)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}
	return nil, SummarizeOutput{
		Summary:         summary.Text,
		DetailLevel:     summary.Level.String(),
		Method:          string(summary.Method),
		SourceWordCount: summary.SourceWordCount,
		FileType:        summary.FileType,
	}, nil
}

func (s *Server) handleGetMetadata(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FileInput,
) (*mcp.CallToolResult, MetadataOutput, error) {
	meta, err := s.ports.Document.GetMetadata(ctx, input.FilePath)
	if err != nil {
		return nil, MetadataOutput{}, err
	}
	return nil, MetadataOutput{
		Title:         meta.Title,
		Author:        meta.Author,
		Pages:         meta.Pages,
		WordCount:     meta.WordCount,
		FileType:      meta.FileType,
		FileSizeBytes: meta.FileSizeBytes,
		FilePath:      meta.FilePath,
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.ports.Document.ListDocuments(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, ListOutput{Documents: documentOutputs(docs)}, nil
}

func (s *Server) handleRemoveDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveInput,
) (*mcp.CallToolResult, RemoveOutput, error) {
	if input.DocID == "" {
		return nil, RemoveOutput{}, fmt.Errorf("%w: doc_id is required", domain.ErrInvalidInput)
	}
	if err := s.ports.Document.RemoveDocument(ctx, input.DocID); err != nil {
		return nil, RemoveOutput{}, err
	}
	return nil, RemoveOutput{DocID: input.DocID, Removed: true}, nil
}

func documentOutputs(docs []domain.DocumentInfo) []DocumentOutput {
	out := make([]DocumentOutput, len(docs))
	for i, d := range docs {
		out[i] = DocumentOutput{
			DocID:      d.ID,
			URI:        d.URI,
			Title:      d.Title,
			State:      d.State.String(),
			Generation: d.Generation,
			ChunkCount: d.ChunkCount,
		}
	}
	return out
}

// preview truncates text to previewLength characters followed by "...".
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// roundScore rounds to four decimal places.
func roundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

// pageOrNil reports unknown pages as null.
func pageOrNil(page int) *int {
	if page <= 0 {
		return nil
	}
	return &page
}
