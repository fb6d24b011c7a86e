// Package domain defines the core business entities for docmind.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A normalised document with metadata and page layout
//   - Chunk: An addressable character window within a document
//   - EmbeddingRecord: A vector keyed by the hash of the text it encodes
//   - SearchResult: A ranked chunk returned by semantic search
//   - Config: Immutable process configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
