package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loginsight-backend/internal/model"
	"loginsight-backend/internal/store"
)

func entry(query string) model.ConversationEntry {
	return model.ConversationEntry{Timestamp: time.Now(), UserQuery: query}
}

func TestConversationStore_SessionsAreIsolated(t *testing.T) {
	s := store.NewInMemoryConversationStore(10)
	ctx := context.Background()

	first, err := s.CreateSession(ctx)
	require.NoError(t, err)
	second, err := s.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.NoError(t, s.Append(ctx, first, entry("only in first")))

	history, err := s.History(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestConversationStore_UnknownSession(t *testing.T) {
	s := store.NewInMemoryConversationStore(10)
	ctx := context.Background()

	_, err := s.History(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.ErrorIs(t, s.Append(ctx, "missing", entry("q")), store.ErrSessionNotFound)
	assert.ErrorIs(t, s.BackfillResponse(ctx, "missing", "a"), store.ErrSessionNotFound)
}

func TestConversationStore_WindowDropsOldestFirst(t *testing.T) {
	s := store.NewInMemoryConversationStore(3)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, sessionID, entry(fmt.Sprintf("turn %d", i))))
	}

	history, err := s.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "turn 2", history[0].UserQuery)
	assert.Equal(t, "turn 4", history[2].UserQuery)
}

func TestConversationStore_BackfillFillsNewestEntry(t *testing.T) {
	s := store.NewInMemoryConversationStore(10)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, sessionID, entry("first")))
	require.NoError(t, s.Append(ctx, sessionID, entry("second")))
	require.NoError(t, s.BackfillResponse(ctx, sessionID, "answer for second"))

	history, err := s.History(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, history[0].Response)
	assert.Equal(t, "answer for second", history[1].Response)
}

func TestConversationStore_BackfillOnEmptySessionFails(t *testing.T) {
	s := store.NewInMemoryConversationStore(10)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx)
	require.NoError(t, err)
	assert.Error(t, s.BackfillResponse(ctx, sessionID, "nothing to fill"))
}

func TestConversationStore_RecentReturnsTail(t *testing.T) {
	s := store.NewInMemoryConversationStore(10)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Append(ctx, sessionID, entry(fmt.Sprintf("turn %d", i))))
	}

	recent, err := s.Recent(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "turn 4", recent[0].UserQuery)
	assert.Equal(t, "turn 5", recent[1].UserQuery)

	// History mutations through the returned slice do not leak back.
	recent[1].UserQuery = "mutated"
	history, err := s.History(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "turn 5", history[5].UserQuery)
}
