package conversation

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a simple in-process conversation store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	convs map[string]Conversation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{convs: make(map[string]Conversation)}
}

func (s *InMemoryStore) Load(_ context.Context, owner string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[owner]
	if !ok {
		return New(owner), nil
	}
	conv.History = cloneHistory(conv.History)
	return conv, nil
}

func (s *InMemoryStore) Save(_ context.Context, conv Conversation) (Conversation, error) {
	if len(conv.History) == 0 {
		return Conversation{}, ErrEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.convs[conv.Owner]
	switch {
	case !exists && conv.Version != 0:
		return Conversation{}, ErrConflict
	case exists && current.Version != conv.Version:
		return Conversation{}, ErrConflict
	}

	conv.History = cloneHistory(conv.History)
	conv.Version++
	conv.UpdatedAt = time.Now().UTC()
	s.convs[conv.Owner] = conv

	out := conv
	out.History = cloneHistory(conv.History)
	return out, nil
}

// Stored reports whether owner has a saved conversation.
func (s *InMemoryStore) Stored(owner string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.convs[owner]
	return ok
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }
