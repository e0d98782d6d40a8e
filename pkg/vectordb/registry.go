package vectordb

import (
	"fmt"

	"github.com/salesmind/salesmind/pkg/config"
)

// NewProviderFromConfig selects the vector store backend.
func NewProviderFromConfig(cfg *config.VectorStoreConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector store config cannot be nil")
	}

	switch cfg.Type {
	case "qdrant":
		return NewQdrantProviderFromConfig(cfg)
	case "chromem":
		return NewChromemProvider(cfg.PersistPath)
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}
