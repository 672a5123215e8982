// Package search defines the search engine collaborator consumed by the
// search skill. The orchestrator only sees the Engine interface; concrete
// backends (in-memory token index, qdrant vector store) live behind it.
package search

import "context"

// Document is one indexed item.
type Document struct {
	ID       string            `json:"id"`
	Path     string            `json:"path,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is a scored match.
type Result struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Engine indexes documents and answers ranked queries.
type Engine interface {
	// Index adds or replaces documents.
	Index(ctx context.Context, docs ...Document) error
	// Search returns up to limit results ranked by relevance.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)
}

// Embedder converts text into a vector for vector-backed engines.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
