package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// connect runs the server over in-memory transports and returns a client session.
func connect(t *testing.T, server *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestSession_ListTools(t *testing.T) {
	cs := connect(t, newTestServer(&mockSearchService{}, &mockDocumentService{}))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"extract_text", "chunk_document", "search_chunks", "summarize_document",
		"get_metadata", "list_documents", "remove_document",
	}, names)
}

func TestSession_StructuredError(t *testing.T) {
	docs := &mockDocumentService{err: domain.ErrUnknownDocument}
	cs := connect(t, newTestServer(&mockSearchService{}, docs))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "remove_document",
		Arguments: map[string]any{"doc_id": "missing"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var payload ToolError
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	assert.Equal(t, domain.KindUnknownDocument, payload.Kind)
}

func TestSession_SearchResult(t *testing.T) {
	search := &mockSearchService{
		results: []domain.SearchResult{{ChunkID: "d:000000", DocumentID: "d", Score: 0.5, Content: "x", Page: 1}},
		total:   1,
	}
	cs := connect(t, newTestServer(search, &mockDocumentService{}))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_chunks",
		Arguments: map[string]any{"query": "x"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out SearchOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 1, out.TotalIndexed)
	require.Len(t, out.Results, 1)
	require.NotNil(t, out.Results[0].Page)
	assert.Equal(t, 1, *out.Results[0].Page)
}

func TestSession_ReadResource(t *testing.T) {
	docs := &mockDocumentService{document: &domain.Document{ID: "abc", Content: "body text"}}
	cs := connect(t, newTestServer(&mockSearchService{}, docs))

	res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "docmind://documents/abc"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "body text", res.Contents[0].Text)
}
