// Package file keeps every chat in a single JSON document of the form
// {"chats": [...]}, rewritten atomically on each change.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/models"
)

type document struct {
	Chats []*models.Chat `json:"chats"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

// New opens the database at path, creating an empty one if needed.
func New(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		if err := s.write(document{Chats: []*models.Chat{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat db: %w", err)
	}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) read() (document, error) {
	var doc document
	b, err := os.ReadFile(s.path)
	if err != nil {
		return doc, fmt.Errorf("read db: %w", err)
	}
	if len(b) == 0 {
		return document{Chats: []*models.Chat{}}, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode db %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) write(doc document) error {
	if doc.Chats == nil {
		doc.Chats = []*models.Chat{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode db: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".db-*.json")
	if err != nil {
		return fmt.Errorf("write db: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write db: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write db: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace db: %w", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, c := range doc.Chats {
		if c.ID == id {
			return store.Clone(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) List(_ context.Context) ([]*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Chat, 0, len(doc.Chats))
	for _, c := range doc.Chats {
		out = append(out, store.Clone(c))
	}
	store.SortByUpdated(out)
	return out, nil
}

func (s *Store) Put(_ context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	replaced := false
	for i, c := range doc.Chats {
		if c.ID == chat.ID {
			doc.Chats[i] = store.Clone(chat)
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Chats = append(doc.Chats, store.Clone(chat))
	}
	return s.write(doc)
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	for i, c := range doc.Chats {
		if c.ID == id {
			doc.Chats = append(doc.Chats[:i], doc.Chats[i+1:]...)
			return s.write(doc)
		}
	}
	return store.ErrNotFound
}

func (s *Store) Close() error { return nil }
