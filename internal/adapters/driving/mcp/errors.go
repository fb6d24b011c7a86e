// Package mcp provides the MCP (Model Context Protocol) server adapter for docmind.
// It exposes document extraction, chunking, search and summarisation as tools.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")

// ToolError is the structured error returned to tool callers. Its Error
// text is the JSON object {"kind": ..., "message": ...}.
type ToolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"kind":%q,"message":%q}`, e.Kind, e.Message)
	}
	return string(data)
}

// toToolError classifies err for the tool surface.
func toToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Kind: domain.ErrorKind(err), Message: err.Error()}
}
