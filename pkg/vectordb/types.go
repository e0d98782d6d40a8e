// Package vectordb abstracts the vector store behind one provider interface
// with two implementations: qdrant for deployments and chromem for the
// embedded demo mode and tests.
package vectordb

import "context"

// Provider is a vector store backend.
type Provider interface {
	// EnsureCollection creates the collection when missing. The vector
	// size is fixed at creation; later writes must match it.
	EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error

	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// UpsertBatch writes many points in one round trip.
	UpsertBatch(ctx context.Context, collection string, points []Point) error

	Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]SearchResult, error)

	Delete(ctx context.Context, collection string, id string) error

	// Scroll lists points without a query vector, up to limit.
	Scroll(ctx context.Context, collection string, limit int) ([]SearchResult, error)

	// CollectionExists reports whether the collection is present.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	Close() error
}

// Point is one vector with its payload.
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// SearchResult is one scored point.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}
