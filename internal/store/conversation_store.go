package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"loginsight-backend/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// ConversationStore keeps the rolling history of each chat session. The
// window is bounded: entries beyond it are dropped oldest-first. One entry is
// appended per turn and its Response is back-filled once at turn end; entries
// are never otherwise mutated.
type ConversationStore interface {
	CreateSession(ctx context.Context) (string, error)
	Append(ctx context.Context, sessionID string, entry model.ConversationEntry) error
	BackfillResponse(ctx context.Context, sessionID string, response string) error
	History(ctx context.Context, sessionID string) ([]model.ConversationEntry, error)
	Recent(ctx context.Context, sessionID string, n int) ([]model.ConversationEntry, error)
}

type inMemoryConversationStore struct {
	window int
	store  map[string][]model.ConversationEntry
	mu     sync.RWMutex
}

func NewInMemoryConversationStore(window int) ConversationStore {
	if window <= 0 {
		window = 10
	}
	return &inMemoryConversationStore{
		window: window,
		store:  make(map[string][]model.ConversationEntry),
	}
}

func (s *inMemoryConversationStore) CreateSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newID := uuid.NewString()
	s.store[newID] = make([]model.ConversationEntry, 0, s.window)
	return newID, nil
}

func (s *inMemoryConversationStore) Append(ctx context.Context, sessionID string, entry model.ConversationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.store[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	entries = append(entries, entry)
	if len(entries) > s.window {
		entries = entries[len(entries)-s.window:]
	}
	s.store[sessionID] = entries
	return nil
}

// BackfillResponse fills the Response of the newest entry.
func (s *inMemoryConversationStore) BackfillResponse(ctx context.Context, sessionID string, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.store[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if len(entries) == 0 {
		return errors.New("no entry to backfill")
	}
	entries[len(entries)-1].Response = response
	return nil
}

func (s *inMemoryConversationStore) History(ctx context.Context, sessionID string) ([]model.ConversationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.store[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]model.ConversationEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *inMemoryConversationStore) Recent(ctx context.Context, sessionID string, n int) ([]model.ConversationEntry, error) {
	entries, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
