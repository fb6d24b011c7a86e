// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor: Reads a file and returns a normalised document
//   - Normaliser: Transforms raw bytes into text for one family of formats
//   - NormaliserRegistry: Selects appropriate normaliser
//   - DocumentStore: Per-run corpus of documents and chunks
//   - VectorIndex: Vector storage and exhaustive cosine search
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration file
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Text generation. Without it, summaries are extractive.
//   - EmbeddingStore: Durable hash to vector tier behind the in-memory cache.
//   - FileWatcher: Invalidates parsed documents when files change.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
