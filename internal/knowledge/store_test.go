package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	embedErr      error
	returnEmpty   bool
	embeddings    []float32
	callCount     int
	lastInputText string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInputText = req.Input[0].Content[0].Text
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: nil}, nil
	}
	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: embeddings}},
	}, nil
}

// fakeRows implements pgx.Rows over an in-memory result set.
type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *time.Time:
			*p = row[i].(time.Time)
		case *float64:
			*p = row[i].(float64)
		case *int64:
			*p = row[i].(int64)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	queryErr   error
	execErr    error
	rows       [][]any
	queryCalls int
	execCalls  int
	lastSQL    string
	lastArgs   []any
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.queryCalls++
	m.lastSQL = sql
	m.lastArgs = args
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return &fakeRows{rows: m.rows}, nil
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execCalls++
	m.lastSQL = sql
	m.lastArgs = args
	return pgconn.CommandTag{}, m.execErr
}

func TestStore_Add(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	embedder := &mockEmbedder{embeddings: []float32{0.5, 0.6, 0.7}}
	store := New(querier, embedder, nil)

	doc := Document{
		ID:      "doc-1",
		Source:  "handbook.txt",
		Content: "Aspirin reduces fever and relieves mild pain.",
	}

	err := store.Add(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.callCount)
	assert.Equal(t, doc.Content, embedder.lastInputText)
	assert.Equal(t, 1, querier.execCalls)

	require.Len(t, querier.lastArgs, 6)
	assert.Equal(t, "doc-1", querier.lastArgs[0])
	assert.Equal(t, IndexName, querier.lastArgs[1])
	assert.Equal(t, "handbook.txt", querier.lastArgs[2])

	vec, ok := querier.lastArgs[4].(pgvector.Vector)
	require.True(t, ok, "embedding argument should be a pgvector.Vector")
	assert.Len(t, vec.Slice(), 3)
}

func TestStore_Add_MissingID(t *testing.T) {
	t.Parallel()

	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	err := store.Add(context.Background(), Document{Content: "orphan"})
	assert.ErrorContains(t, err, "document ID is required")
}

func TestStore_Add_EmbeddingError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		embedder *mockEmbedder
		wantErr  string
	}{
		{"embed call fails", &mockEmbedder{embedErr: errors.New("service unavailable")}, "embed call"},
		{"no vector returned", &mockEmbedder{returnEmpty: true}, "no vector"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			querier := &mockQuerier{}
			store := New(querier, tt.embedder, nil)

			err := store.Add(context.Background(), Document{ID: "doc-1", Content: "text"})
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Zero(t, querier.execCalls, "upsert should not run when embedding fails")
		})
	}
}

func TestStore_Add_UpsertError(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{execErr: errors.New("connection lost")}
	store := New(querier, &mockEmbedder{}, nil)

	err := store.Add(context.Background(), Document{ID: "doc-1", Content: "text"})
	assert.ErrorContains(t, err, "upserting document")
	assert.ErrorContains(t, err, "connection lost")
}

func TestStore_Search(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	querier := &mockQuerier{
		rows: [][]any{
			{"doc-1", "guide.md", "Ibuprofen is an NSAID.", created, 0.95},
			{"doc-2", "leaflet.txt", "Paracetamol dosing for adults.", created, 0.87},
		},
	}
	embedder := &mockEmbedder{}
	store := New(querier, embedder, nil)

	results, err := store.Search(context.Background(), "pain relief", WithTopK(10))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-1", results[0].Document.ID)
	assert.Equal(t, "guide.md", results[0].Document.Source)
	assert.InDelta(t, 0.95, results[0].Similarity, 1e-9)
	assert.Equal(t, "doc-2", results[1].Document.ID)

	assert.Equal(t, "pain relief", embedder.lastInputText)
	require.Len(t, querier.lastArgs, 3)
	assert.Equal(t, IndexName, querier.lastArgs[1])
	assert.Equal(t, 10, querier.lastArgs[2])
}

func TestStore_Search_DefaultTopK(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)

	require.Len(t, querier.lastArgs, 3)
	assert.Equal(t, 3, querier.lastArgs[2])
}

func TestStore_Search_EmbeddingError(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{embedErr: errors.New("quota exceeded")}, nil)

	_, err := store.Search(context.Background(), "query")
	assert.ErrorContains(t, err, "embedding query")
	assert.Zero(t, querier.queryCalls, "search should not hit the database when embedding fails")
}

func TestStore_Search_QueryError(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{queryErr: errors.New("relation does not exist")}
	store := New(querier, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "query")
	assert.ErrorContains(t, err, "vector search")
}

func TestStore_Search_Timeout(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{queryErr: context.DeadlineExceeded}
	store := New(querier, &mockEmbedder{}, nil)

	_, err := store.Search(context.Background(), "query")
	assert.ErrorContains(t, err, "vector search timeout")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_Count(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{rows: [][]any{{int64(42)}}}
	store := New(querier, &mockEmbedder{}, nil)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	require.Len(t, querier.lastArgs, 1)
	assert.Equal(t, IndexName, querier.lastArgs[0])
}

func TestStore_Count_Error(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{queryErr: errors.New("database timeout")}
	store := New(querier, &mockEmbedder{}, nil)

	_, err := store.Count(context.Background())
	assert.ErrorContains(t, err, "counting documents")
}

func TestSearchOptions(t *testing.T) {
	t.Parallel()

	cfg := buildSearchConfig(nil)
	assert.Equal(t, 3, cfg.topK)

	cfg = buildSearchConfig([]SearchOption{WithTopK(10)})
	assert.Equal(t, 10, cfg.topK)

	cfg = buildSearchConfig([]SearchOption{WithTopK(0)})
	assert.Equal(t, 3, cfg.topK, "non-positive topK keeps the default")
}
