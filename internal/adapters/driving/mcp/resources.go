package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

const (
	documentsURI   = "docmind://documents"
	documentPrefix = documentsURI + "/"
	metadataSuffix = "/metadata"
)

// DocumentMetadataOutput is the JSON body of docmind://documents/{docId}/metadata.
type DocumentMetadataOutput struct {
	DocID      string         `json:"doc_id"`
	URI        string         `json:"uri"`
	Title      string         `json:"title"`
	State      string         `json:"state"`
	Generation uint64         `json:"generation"`
	Pages      int            `json:"pages"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Documents chunked in this session",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentPrefix + "{docId}",
		Name:        "document-content",
		Description: "Extracted text of an ingested document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentPrefix + "{docId}" + metadataSuffix,
		Name:        "document-metadata",
		Description: "State, generation and normaliser metadata of an ingested document",
		MIMEType:    "application/json",
	}, s.handleDocumentMetadataResource)
}

func (s *Server) handleDocumentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return jsonContents(req.Params.URI, documentOutputs(docs))
}

func (s *Server) handleDocumentContentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	doc, err := s.lookup(ctx, req.Params.URI, false)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Content,
		}},
	}, nil
}

func (s *Server) handleDocumentMetadataResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	doc, err := s.lookup(ctx, req.Params.URI, true)
	if err != nil {
		return nil, err
	}
	meta := doc.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return jsonContents(req.Params.URI, DocumentMetadataOutput{
		DocID:      doc.ID,
		URI:        doc.URI,
		Title:      doc.Title,
		State:      doc.State.String(),
		Generation: doc.Generation,
		Pages:      doc.PageCount(),
		Metadata:   meta,
	})
}

// lookup resolves a document URI. Unknown ids and malformed URIs are both
// reported as resource-not-found.
func (s *Server) lookup(ctx context.Context, uri string, metadata bool) (*domain.Document, error) {
	docID, isMeta := parseDocumentURI(uri)
	if docID == "" || isMeta != metadata {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	doc, err := s.ports.Document.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrUnknownDocument) || errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// parseDocumentURI splits docmind://documents/{docId}[/metadata]. docID is
// empty when uri matches neither form.
func parseDocumentURI(uri string) (docID string, metadata bool) {
	rest, ok := strings.CutPrefix(uri, documentPrefix)
	if !ok {
		return "", false
	}
	if id, ok := strings.CutSuffix(rest, metadataSuffix); ok {
		rest, metadata = id, true
	}
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, metadata
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
