package driven

import (
	"context"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// based on MIME type.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the best matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}

// Extractor reads a file and returns its normalised document.
// All failures are reported as *domain.ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, path string) (*domain.Document, error)
}

// FileWatcher reports changes to watched files.
type FileWatcher interface {
	// Watch starts reporting changes to path.
	Watch(path string) error

	// Unwatch stops reporting changes to path.
	Unwatch(path string) error

	// Close stops the watcher.
	Close() error
}
