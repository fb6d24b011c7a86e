package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// documentIDLength is the number of hex characters kept from the path digest.
const documentIDLength = 16

// DocumentState tracks how far a document has progressed through ingestion.
type DocumentState string

// Document lifecycle states.
const (
	// StateIngested means the text has been extracted but not chunked.
	StateIngested DocumentState = "ingested"

	// StateChunked means chunks exist but no embeddings were requested.
	StateChunked DocumentState = "chunked"

	// StatePartiallyEmbedded means at least one chunk failed to embed.
	StatePartiallyEmbedded DocumentState = "partially_embedded"

	// StateFullyEmbedded means every chunk is searchable.
	StateFullyEmbedded DocumentState = "fully_embedded"
)

// String returns the string representation.
func (s DocumentState) String() string {
	return string(s)
}

// Document represents a normalised document with metadata.
// A Document value is immutable once ingested; re-ingestion produces
// a new value with a higher Generation.
type Document struct {
	// ID is derived from the absolute file path, see DocumentID.
	ID string

	// URI is the original location (file path).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	Content string

	// Metadata contains scalar key-value pairs produced by the normaliser.
	Metadata map[string]any

	// PageOffsets holds the character offset at which each page begins.
	// Empty for formats without pages.
	PageOffsets []int

	// Generation increases each time the document is re-ingested.
	Generation uint64

	// State is the ingestion state of this generation.
	State DocumentState

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when this generation was committed.
	UpdatedAt time.Time
}

// DocumentID derives a stable identifier from a file path.
func DocumentID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:documentIDLength]
}

// PageCount returns the number of pages, or 1 for unpaged content.
func (d *Document) PageCount() int {
	if len(d.PageOffsets) == 0 {
		return 1
	}
	return len(d.PageOffsets)
}

// PageAt returns the 1-based page containing the given character offset.
// Returns 0 when the document has no page layout.
func (d *Document) PageAt(offset int) int {
	if len(d.PageOffsets) == 0 {
		return 0
	}
	// First page whose start is beyond offset; the page before it contains offset.
	i := sort.Search(len(d.PageOffsets), func(i int) bool {
		return d.PageOffsets[i] > offset
	})
	if i == 0 {
		return 1
	}
	return i
}

// Chunk is a contiguous character window of a document.
// Offsets count Unicode code points, not bytes.
type Chunk struct {
	// ID is deterministic, see ChunkID.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the ordinal position within the document.
	Index int

	// StartOffset is the inclusive start character offset.
	StartOffset int

	// EndOffset is the exclusive end character offset.
	EndOffset int

	// Content is the text between StartOffset and EndOffset.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// Page is the 1-based page on which the chunk starts, 0 if unknown.
	Page int

	// Generation is the document generation that produced this chunk.
	// Chunk IDs repeat across generations; this tells them apart.
	Generation uint64

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// ChunkID builds the identifier for the chunk at index within a document.
// The zero padding makes lexical order match sequence order.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%06d", documentID, index)
}

// ContentHash returns the hex SHA-256 digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}

// DocumentInfo is a listing entry for an ingested document.
type DocumentInfo struct {
	ID         string
	URI        string
	Title      string
	State      DocumentState
	Generation uint64
	ChunkCount int
	UpdatedAt  time.Time
}

// Metadata keys set by the extractor.
const (
	MetaTitle         = "title"
	MetaAuthor        = "author"
	MetaPages         = "pages"
	MetaWordCount     = "word_count"
	MetaFileType      = "file_type"
	MetaFileSizeBytes = "file_size_bytes"
	MetaFilePath      = "file_path"
	MetaMIMEType      = "mime_type"
)

// MetaString returns a string metadata value, or "" when absent.
func (d *Document) MetaString(key string) string {
	s, _ := d.Metadata[key].(string)
	return s
}

// MetaInt returns an integer metadata value, or 0 when absent.
func (d *Document) MetaInt(key string) int64 {
	switch v := d.Metadata[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}
