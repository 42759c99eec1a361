// Package knowledge stores and searches medical-document passages in
// PostgreSQL with pgvector. Embeddings are generated through a Genkit
// embedder; similarity search runs over the cosine distance operator.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/medichat/medichat/internal/log"
)

// IndexName is the logical name of the medical knowledge index. All
// documents this service reads and writes carry it.
const IndexName = "medical-chatbot"

// searchTimeout bounds a single vector search, embedding included.
const searchTimeout = 10 * time.Second

// Querier is the minimal database surface the store needs.
// *pgxpool.Pool satisfies it. Consumer-side interface keeps the store
// testable without a live database.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides vector search over the knowledge base.
// Safe for concurrent use.
type Store struct {
	db       Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. logger may be nil for a no-op logger.
func New(db Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Add embeds and upserts one document into the index.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("document ID is required")
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (id, index_name, source, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET source = EXCLUDED.source,
		    content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding`,
		doc.ID, IndexName, doc.Source, doc.Content, embedding, createdAt)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("indexed document", "id", doc.ID, "source", doc.Source, "content_length", len(doc.Content))
	return nil
}

// Search returns the passages most similar to query, ordered by descending
// cosine similarity.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, source, content, created_at, 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE index_name = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		embedding, IndexName, cfg.topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Document.ID, &r.Document.Source, &r.Document.Content, &r.Document.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	s.logger.Debug("vector search completed", "results", len(results), "top_k", cfg.topK)
	return results, nil
}

// Count reports the number of documents in the index.
func (s *Store) Count(ctx context.Context) (int64, error) {
	rows, err := s.db.Query(ctx, `SELECT count(*) FROM documents WHERE index_name = $1`, IndexName)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("scanning count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading count: %w", err)
	}
	return count, nil
}

// embed generates the embedding vector for one text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embed call: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned no vector")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
