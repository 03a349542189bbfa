package memory

import (
	"context"
	"sync"

	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/models"
)

type Store struct {
	mu    sync.RWMutex
	chats map[string]*models.Chat
}

func New() *Store {
	return &Store{chats: map[string]*models.Chat{}}
}

func (s *Store) Get(_ context.Context, id string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Clone(c), nil
}

func (s *Store) List(_ context.Context) ([]*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, store.Clone(c))
	}
	store.SortByUpdated(out)
	return out, nil
}

func (s *Store) Put(_ context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chat.ID] = store.Clone(chat)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.chats, id)
	return nil
}

func (s *Store) Close() error { return nil }
