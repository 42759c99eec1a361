package knowledge

import "time"

// Document is one passage of the medical knowledge base.
type Document struct {
	ID        string    // Unique identifier
	Source    string    // Originating document (file name, citation)
	Content   string    // Passage text
	CreatedAt time.Time // Indexing timestamp
}

// Result is a search hit with its cosine similarity score.
type Result struct {
	Document   Document
	Similarity float64
}

// SearchOption configures a search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK int
}

// WithTopK limits the number of results. Default is 3.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 3}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
