// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The services own the two pieces of shared mutable state of the pipeline:
// the sharded EmbeddingCache and the per-document commit locks. No lock is
// held while a provider call is outstanding.
package services
