// Package extractor reads files from disk and turns them into documents
// through the normaliser registry.
package extractor

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
	"github.com/custodia-labs/docmind/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// knownTypes maps supported extensions to MIME types. Go's mime table
// varies by platform, so these are fixed.
var knownTypes = map[string]string{
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".log":      "text/plain",
	".json":     "application/json",
	".yaml":     "application/x-yaml",
	".yml":      "application/x-yaml",
	".html":     "text/html",
	".htm":      "text/html",
}

// Extractor implements driven.Extractor for local files.
type Extractor struct {
	registry driven.NormaliserRegistry
}

// New creates an extractor that dispatches through registry.
func New(registry driven.NormaliserRegistry) *Extractor {
	return &Extractor{registry: registry}
}

// Extract reads path and normalises it. Every failure is returned as
// *domain.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1: Stat and read the file
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &domain.ExtractionError{Path: abs, Err: err}
	}
	if info.IsDir() {
		return nil, &domain.ExtractionError{Path: abs, Err: fmt.Errorf("%w: is a directory", domain.ErrInvalidInput)}
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, &domain.ExtractionError{Path: abs, Err: err}
	}

	// Step 2: Dispatch by MIME type
	ext := strings.ToLower(filepath.Ext(abs))
	mimeType := detectMIMEType(abs)
	logger.Debug("extracting %s as %s", abs, mimeType)

	result, err := e.registry.Normalise(ctx, &domain.RawDocument{
		URI:      abs,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{domain.MetaFileSizeBytes: info.Size()},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ExtractionError{Path: abs, Err: err}
	}

	// Step 3: Fill identity and standard metadata
	doc := result.Document
	doc.ID = domain.DocumentID(abs)
	doc.URI = abs
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata[domain.MetaTitle] = doc.Title
	doc.Metadata[domain.MetaWordCount] = len(strings.Fields(doc.Content))
	doc.Metadata[domain.MetaFileType] = strings.TrimPrefix(ext, ".")
	doc.Metadata[domain.MetaFileSizeBytes] = info.Size()
	doc.Metadata[domain.MetaFilePath] = abs
	if _, ok := doc.Metadata[domain.MetaPages]; !ok {
		doc.Metadata[domain.MetaPages] = 0
	}

	return &doc, nil
}

// SupportedExtensions returns the extensions with a fixed MIME mapping, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(knownTypes))
	for ext := range knownTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// detectMIMEType returns the MIME type for a file name without parameters.
// Files without an extension are treated as plain text.
func detectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if idx := strings.Index(t, ";"); idx != -1 {
			t = strings.TrimSpace(t[:idx])
		}
		return t
	}
	return "application/octet-stream"
}
