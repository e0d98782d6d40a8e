package knowledge

import "time"

// NuggetType classifies a knowledge nugget by sales situation.
type NuggetType string

const (
	TypeGeneral     NuggetType = "general"
	TypeObjection   NuggetType = "objection"
	TypeClosing     NuggetType = "closing"
	TypeProduct     NuggetType = "product"
	TypePricing     NuggetType = "pricing"
	TypeCompetition NuggetType = "competition"
	TypeDemo        NuggetType = "demo"
	TypeFollowUp    NuggetType = "follow_up"
	TypeTechnical   NuggetType = "technical"
)

// ValidTypes lists every accepted nugget type.
var ValidTypes = []NuggetType{
	TypeGeneral, TypeObjection, TypeClosing, TypeProduct, TypePricing,
	TypeCompetition, TypeDemo, TypeFollowUp, TypeTechnical,
}

// IsValidType reports whether t is a known nugget type.
func IsValidType(t NuggetType) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Nugget is one vector-indexed piece of domain advice.
type Nugget struct {
	ID        string     `json:"id,omitempty"`
	Content   string     `json:"content"`
	Title     string     `json:"title"`
	Type      NuggetType `json:"knowledge_type"`
	Archetype string     `json:"archetype,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Source    string     `json:"source,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

// ScoredNugget is a nugget with its retrieval similarity.
type ScoredNugget struct {
	Nugget
	SimilarityScore float32 `json:"similarity_score"`
}

// BulkResult reports the outcome of a bulk upsert.
type BulkResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	CreatedIDs   []string `json:"created_ids"`
	Errors       []string `json:"errors"`
}

// Health describes the retriever's backing services.
type Health struct {
	Status           string `json:"status"`
	CollectionExists bool   `json:"collection_exists"`
	Collection       string `json:"collection"`
	EmbeddingModel   string `json:"embedding_model"`
	Dimension        int    `json:"dimension"`
	Error            string `json:"error,omitempty"`
}
