package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/medichat/medichat/internal/knowledge"
	"github.com/medichat/medichat/internal/log"
)

// Fixed retrieval outcome strings. The unavailable and no-results cases are
// deliberately distinct so callers (and the model) can tell them apart.
const (
	// UnavailableMessage is returned when no vector store is wired.
	UnavailableMessage = "Knowledge base is not available."

	// NoResultsMessage is returned when the search succeeds but finds
	// nothing.
	NoResultsMessage = "No relevant medical information found in the knowledge base."
)

// sourcePreviewRunes caps passage content in RelevantSources output.
const sourcePreviewRunes = 200

// Passage is one retrieved knowledge-base passage.
type Passage struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// Searcher is the vector store surface the retriever depends on.
// *knowledge.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Retriever adapts vector search results into the context text handed to
// the model. All failures are caught here and converted to fixed strings;
// nothing propagates to the caller.
type Retriever struct {
	store  Searcher
	logger log.Logger
}

// NewRetriever creates a Retriever. store may be nil, in which case every
// retrieval reports the knowledge base as unavailable.
func NewRetriever(store Searcher, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{store: store, logger: logger}
}

// Retrieve searches the knowledge base and formats the top-k passages into
// a single context string. The passage list accompanies the text as
// structured output; it is empty for the unavailable, no-results, and error
// cases, each of which yields its own fixed string.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (string, []Passage) {
	r.logger.Info("retrieving context", "query", preview(query, 50))

	if r.store == nil {
		r.logger.Error("vector store is not configured")
		return UnavailableMessage, []Passage{}
	}

	results, err := r.store.Search(ctx, query, knowledge.WithTopK(k))
	if err != nil {
		r.logger.Error("retrieving context failed", "error", err)
		return fmt.Sprintf("Error accessing knowledge base: %v", err), []Passage{}
	}

	if len(results) == 0 {
		r.logger.Warn("no documents retrieved", "query", preview(query, 50))
		return NoResultsMessage, []Passage{}
	}

	blocks := make([]string, 0, len(results))
	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		source := res.Document.Source
		if source == "" {
			source = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", source, res.Document.Content))
		passages = append(passages, Passage{Source: source, Content: res.Document.Content})
	}

	r.logger.Info("retrieved documents", "count", len(results))
	return strings.Join(blocks, "\n\n"), passages
}

// RelevantSources searches the knowledge base and returns passages with
// content truncated for lightweight display. Failures are logged and yield
// an empty list, never an error.
func (r *Retriever) RelevantSources(ctx context.Context, query string, k int) []Passage {
	if r.store == nil {
		r.logger.Error("vector store is not configured")
		return []Passage{}
	}

	results, err := r.store.Search(ctx, query, knowledge.WithTopK(k))
	if err != nil {
		r.logger.Error("retrieving sources failed", "error", err)
		return []Passage{}
	}

	sources := make([]Passage, 0, len(results))
	for _, res := range results {
		source := res.Document.Source
		if source == "" {
			source = "Unknown"
		}
		content := res.Document.Content
		if runes := []rune(content); len(runes) > sourcePreviewRunes {
			content = string(runes[:sourcePreviewRunes]) + "..."
		}
		sources = append(sources, Passage{Source: source, Content: content})
	}
	return sources
}

// preview shortens s for log output.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
