package config

import "fmt"

// VectorStoreConfig configures the knowledge vector store.
type VectorStoreConfig struct {
	// Type selects the backend (qdrant, chromem).
	Type string `yaml:"type,omitempty"`

	// Host and Port locate the qdrant gRPC endpoint.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// APIKey for qdrant cloud.
	APIKey string `yaml:"api_key,omitempty"`

	// EnableTLS toggles TLS on the qdrant connection.
	EnableTLS *bool `yaml:"enable_tls,omitempty"`

	// Collection is the knowledge nugget collection name.
	Collection string `yaml:"collection,omitempty"`

	// Dimension is fixed at collection creation; writes with a different
	// vector size are refused.
	Dimension int `yaml:"dimension,omitempty"`

	// PersistPath enables file persistence for the chromem backend.
	PersistPath string `yaml:"persist_path,omitempty"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "qdrant"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "sales_knowledge"
	}
	if c.Dimension == 0 {
		c.Dimension = 384
	}
}

func (c *VectorStoreConfig) Validate() error {
	switch c.Type {
	case "qdrant", "chromem":
	default:
		return fmt.Errorf("unsupported vector store type: %s", c.Type)
	}
	if c.Collection == "" {
		return fmt.Errorf("vector store collection is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("vector dimension must be positive")
	}
	return nil
}
