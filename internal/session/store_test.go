package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EnsureCreatesEmptyHistory(t *testing.T) {
	t.Parallel()

	store := New()
	id := uuid.New()

	store.Ensure(id)

	assert.Empty(t, store.History(id))
	assert.Equal(t, 1, store.Len())
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	t.Parallel()

	store := New()
	id := uuid.New()

	store.Ensure(id)
	store.Append(id, NewTurn(RoleUser, "hello"))
	store.Ensure(id)

	// A second Ensure must not wipe existing turns.
	require.Len(t, store.History(id), 1)
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	t.Parallel()

	store := New()
	id := uuid.New()
	store.Ensure(id)

	store.Append(id, NewTurn(RoleUser, "what is diabetes?"))
	store.Append(id, NewTurn(RoleAssistant, "Diabetes is..."))

	turns := store.History(id)
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "what is diabetes?", turns[0].Message)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestStore_AppendUnknownSessionIsDropped(t *testing.T) {
	t.Parallel()

	store := New()

	store.Append(uuid.New(), NewTurn(RoleUser, "orphan"))

	assert.Equal(t, 0, store.Len())
}

func TestStore_ClearThenAppendStartsFresh(t *testing.T) {
	t.Parallel()

	store := New()
	id := uuid.New()
	store.Ensure(id)
	store.Append(id, NewTurn(RoleUser, "first"))
	store.Append(id, NewTurn(RoleAssistant, "answer"))

	store.Clear(id)
	require.Empty(t, store.History(id))

	store.Append(id, NewTurn(RoleUser, "second"))

	turns := store.History(id)
	require.Len(t, turns, 1)
	assert.Equal(t, "second", turns[0].Message)
}

func TestStore_ClearUnknownSessionIsNoop(t *testing.T) {
	t.Parallel()

	store := New()
	store.Clear(uuid.New())

	assert.Equal(t, 0, store.Len())
}

func TestStore_HistoryUnknownSessionIsEmpty(t *testing.T) {
	t.Parallel()

	store := New()

	turns := store.History(uuid.New())

	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestStore_HistoryReturnsCopy(t *testing.T) {
	t.Parallel()

	store := New()
	id := uuid.New()
	store.Ensure(id)
	store.Append(id, NewTurn(RoleUser, "original"))

	turns := store.History(id)
	turns[0].Message = "mutated"

	assert.Equal(t, "original", store.History(id)[0].Message)
}

func TestStore_ConcurrentSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	store := New()
	const sessions = 16
	const turnsPerSession = 50

	ids := make([]uuid.UUID, sessions)
	for i := range ids {
		ids[i] = uuid.New()
		store.Ensure(ids[i])
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range turnsPerSession {
				store.Append(id, NewTurn(RoleUser, fmt.Sprintf("s%d-%d", i, n)))
			}
		}()
	}
	wg.Wait()

	for i, id := range ids {
		turns := store.History(id)
		require.Len(t, turns, turnsPerSession)
		// Per-session insertion order is preserved.
		for n, turn := range turns {
			assert.Equal(t, fmt.Sprintf("s%d-%d", i, n), turn.Message)
		}
	}
}
