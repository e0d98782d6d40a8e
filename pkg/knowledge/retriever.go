// Package knowledge implements the RAG retriever over the vector store:
// nearest-neighbour search for the strategy generator and bulk ingestion for
// the dojo.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/salesmind/salesmind/pkg/embedders"
	"github.com/salesmind/salesmind/pkg/vectordb"
)

// MaxBulkSize caps one bulk upsert request.
const MaxBulkSize = 50

// Retriever embeds queries and nuggets and talks to the vector store.
type Retriever struct {
	db         vectordb.Provider
	embedder   embedders.Embedder
	collection string
	dimension  int
}

// NewRetriever wires the retriever and ensures the collection exists with
// the configured dimension.
func NewRetriever(ctx context.Context, db vectordb.Provider, embedder embedders.Embedder, collection string) (*Retriever, error) {
	if db == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	r := &Retriever{
		db:         db,
		embedder:   embedder,
		collection: collection,
		dimension:  embedder.Dimension(),
	}

	if err := db.EnsureCollection(ctx, collection, uint64(r.dimension)); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return r, nil
}

// Search embeds the query and returns the top results by cosine similarity,
// optionally filtered by archetype and nugget type.
func (r *Retriever) Search(ctx context.Context, query string, archetype string, nuggetType NuggetType, limit int) ([]ScoredNugget, error) {
	if limit <= 0 {
		limit = 3
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filter := make(map[string]any)
	if archetype != "" {
		filter["archetype"] = archetype
	}
	if nuggetType != "" {
		filter["knowledge_type"] = string(nuggetType)
	}

	results, err := r.db.Search(ctx, r.collection, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}

	nuggets := make([]ScoredNugget, 0, len(results))
	for _, res := range results {
		nuggets = append(nuggets, ScoredNugget{
			Nugget:          nuggetFromMetadata(res.ID, res.Metadata),
			SimilarityScore: res.Score,
		})
	}
	return nuggets, nil
}

// Upsert writes a single nugget and returns its id.
func (r *Retriever) Upsert(ctx context.Context, nugget Nugget) (string, error) {
	result, err := r.BulkUpsert(ctx, []Nugget{nugget})
	if err != nil {
		return "", err
	}
	if result.SuccessCount != 1 || len(result.CreatedIDs) != 1 {
		if len(result.Errors) > 0 {
			return "", fmt.Errorf("failed to upsert nugget: %s", result.Errors[0])
		}
		return "", fmt.Errorf("failed to upsert nugget")
	}
	return result.CreatedIDs[0], nil
}

// BulkUpsert embeds every nugget, assigns UUIDs and performs one batched
// write. Individual embedding failures are collected, not fatal.
func (r *Retriever) BulkUpsert(ctx context.Context, nuggets []Nugget) (*BulkResult, error) {
	if len(nuggets) == 0 {
		return &BulkResult{}, nil
	}
	if len(nuggets) > MaxBulkSize {
		return nil, fmt.Errorf("bulk size %d exceeds maximum of %d", len(nuggets), MaxBulkSize)
	}

	result := &BulkResult{}
	points := make([]vectordb.Point, 0, len(nuggets))

	for i, nugget := range nuggets {
		if nugget.Content == "" {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: content is required", i))
			continue
		}
		if nugget.Type == "" {
			nugget.Type = TypeGeneral
		}
		if !IsValidType(nugget.Type) {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: unknown knowledge type %q", i, nugget.Type))
			continue
		}

		vector, err := r.embedder.Embed(ctx, nugget.Content)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: embedding failed: %v", i, err))
			continue
		}
		if len(vector) != r.dimension {
			// The collection dimension is fixed at creation; refuse the write.
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: vector dimension %d does not match collection dimension %d", i, len(vector), r.dimension))
			continue
		}

		id := uuid.NewString()
		createdAt := nugget.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		points = append(points, vectordb.Point{
			ID:     id,
			Vector: vector,
			Metadata: map[string]any{
				"content":         nugget.Content,
				"title":           nugget.Title,
				"knowledge_type":  string(nugget.Type),
				"archetype":       nugget.Archetype,
				"tags":            tagsToAny(nugget.Tags),
				"source":          nugget.Source,
				"created_at":      createdAt.Format(time.RFC3339),
				"content_length":  len(nugget.Content),
				"embedding_model": r.embedder.ModelName(),
			},
		})
		result.CreatedIDs = append(result.CreatedIDs, id)
	}

	if len(points) > 0 {
		if err := r.db.UpsertBatch(ctx, r.collection, points); err != nil {
			return nil, fmt.Errorf("bulk upsert failed: %w", err)
		}
	}

	result.SuccessCount = len(result.CreatedIDs)
	slog.Info("knowledge bulk upsert",
		"requested", len(nuggets),
		"succeeded", result.SuccessCount,
		"failed", result.ErrorCount)

	return result, nil
}

// Delete removes one nugget by id.
func (r *Retriever) Delete(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, r.collection, id); err != nil {
		return fmt.Errorf("failed to delete nugget: %w", err)
	}
	return nil
}

// GetAll lists up to limit nuggets without scoring.
func (r *Retriever) GetAll(ctx context.Context, limit int) ([]Nugget, error) {
	if limit <= 0 {
		limit = 100
	}
	results, err := r.db.Scroll(ctx, r.collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list nuggets: %w", err)
	}

	nuggets := make([]Nugget, 0, len(results))
	for _, res := range results {
		nuggets = append(nuggets, nuggetFromMetadata(res.ID, res.Metadata))
	}
	return nuggets, nil
}

// Health probes the vector store.
func (r *Retriever) Health(ctx context.Context) Health {
	h := Health{
		Collection:     r.collection,
		EmbeddingModel: r.embedder.ModelName(),
		Dimension:      r.dimension,
	}

	exists, err := r.db.CollectionExists(ctx, r.collection)
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}

	h.CollectionExists = exists
	if exists {
		h.Status = "healthy"
	} else {
		h.Status = "degraded"
	}
	return h
}

func tagsToAny(tags []string) []any {
	out := make([]any, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}

func nuggetFromMetadata(id string, metadata map[string]any) Nugget {
	nugget := Nugget{ID: id}

	if v, ok := metadata["content"].(string); ok {
		nugget.Content = v
	}
	if v, ok := metadata["title"].(string); ok {
		nugget.Title = v
	}
	if v, ok := metadata["knowledge_type"].(string); ok {
		nugget.Type = NuggetType(v)
	}
	if v, ok := metadata["archetype"].(string); ok {
		nugget.Archetype = v
	}
	if v, ok := metadata["source"].(string); ok {
		nugget.Source = v
	}
	if v, ok := metadata["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			nugget.CreatedAt = ts
		}
	}
	if rawTags, ok := metadata["tags"].([]any); ok {
		for _, t := range rawTags {
			if s, ok := t.(string); ok {
				nugget.Tags = append(nugget.Tags, s)
			}
		}
	}
	return nugget
}
