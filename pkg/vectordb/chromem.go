package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemProvider stores vectors in process memory via chromem-go, with
// optional gob persistence. It backs the zero-dependency demo mode and the
// test suite; production deployments use qdrant.
type ChromemProvider struct {
	db          *chromem.DB
	persistPath string
	mu          sync.RWMutex

	collections map[string]*chromem.Collection
	dims        map[string]int

	// chromem has no listing primitive, so ids are tracked per collection
	// to support Scroll.
	ids map[string]map[string]struct{}
}

// NewChromemProvider creates the embedded store. An empty persistPath keeps
// everything in memory.
func NewChromemProvider(persistPath string) (*ChromemProvider, error) {
	var db *chromem.DB

	if persistPath != "" {
		if err := os.MkdirAll(persistPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		dbPath := filepath.Join(persistPath, "vectors.gob")
		if _, statErr := os.Stat(dbPath); statErr == nil {
			loaded, err := chromem.NewPersistentDB(dbPath, false)
			if err != nil {
				db = chromem.NewDB()
			} else {
				db = loaded
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemProvider{
		db:          db,
		persistPath: persistPath,
		collections: make(map[string]*chromem.Collection),
		dims:        make(map[string]int),
		ids:         make(map[string]map[string]struct{}),
	}, nil
}

func (p *ChromemProvider) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	// Vectors arrive pre-computed; the embedding func must never run.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors are pre-computed")
	}

	col, err := p.db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}

	p.collections[name] = col
	return col, nil
}

func (p *ChromemProvider) EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error {
	if _, err := p.getCollection(collection); err != nil {
		return err
	}
	p.mu.Lock()
	if _, ok := p.dims[collection]; !ok {
		p.dims[collection] = int(vectorSize)
	}
	p.mu.Unlock()
	return nil
}

func (p *ChromemProvider) CollectionExists(ctx context.Context, collection string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.collections[collection]
	return ok, nil
}

func (p *ChromemProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	return p.UpsertBatch(ctx, collection, []Point{{ID: id, Vector: vector, Metadata: metadata}})
}

func (p *ChromemProvider) UpsertBatch(ctx context.Context, collection string, points []Point) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	p.mu.RLock()
	expected, hasDim := p.dims[collection]
	p.mu.RUnlock()

	docs := make([]chromem.Document, 0, len(points))
	for _, pt := range points {
		if hasDim && len(pt.Vector) != expected {
			return fmt.Errorf("vector dimension mismatch: got %d, collection expects %d", len(pt.Vector), expected)
		}

		strMetadata := make(map[string]string, len(pt.Metadata))
		for k, v := range pt.Metadata {
			strMetadata[k] = fmt.Sprint(v)
		}

		content := ""
		if c, ok := pt.Metadata["content"].(string); ok {
			content = c
		}

		docs = append(docs, chromem.Document{
			ID:        pt.ID,
			Content:   content,
			Metadata:  strMetadata,
			Embedding: pt.Vector,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}

	p.mu.Lock()
	if p.ids[collection] == nil {
		p.ids[collection] = make(map[string]struct{})
	}
	for _, pt := range points {
		p.ids[collection][pt.ID] = struct{}{}
	}
	p.mu.Unlock()

	return nil
}

func (p *ChromemProvider) Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]SearchResult, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	var whereFilter map[string]string
	if len(filter) > 0 {
		whereFilter = make(map[string]string, len(filter))
		for k, v := range filter {
			whereFilter[k] = fmt.Sprint(v)
		}
	}

	// chromem rejects topK greater than the collection size.
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, whereFilter, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		out = append(out, SearchResult{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: metadata,
		})
	}
	return out, nil
}

func (p *ChromemProvider) Scroll(ctx context.Context, collection string, limit int) ([]SearchResult, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	idSet := make([]string, 0, len(p.ids[collection]))
	for id := range p.ids[collection] {
		idSet = append(idSet, id)
	}
	p.mu.RUnlock()
	sort.Strings(idSet)

	results := make([]SearchResult, 0, len(idSet))
	for _, id := range idSet {
		if limit > 0 && len(results) >= limit {
			break
		}
		doc, err := col.GetByID(ctx, id)
		if err != nil {
			continue
		}
		metadata := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		results = append(results, SearchResult{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadata,
		})
	}
	return results, nil
}

func (p *ChromemProvider) Delete(ctx context.Context, collection string, id string) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	p.mu.Lock()
	delete(p.ids[collection], id)
	p.mu.Unlock()

	return nil
}

func (p *ChromemProvider) Close() error {
	return nil
}
