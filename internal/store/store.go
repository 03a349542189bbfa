// Package store persists chat records. Every write replaces the whole record.
package store

import (
	"context"
	"errors"
	"sort"

	"go-tripplanner/pkg/models"
)

var ErrNotFound = errors.New("chat not found")

type Store interface {
	Get(ctx context.Context, id string) (*models.Chat, error)
	// List returns every chat, most recently updated first.
	List(ctx context.Context) ([]*models.Chat, error)
	Put(ctx context.Context, chat *models.Chat) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// SortByUpdated orders chats most recently updated first, ties by id.
func SortByUpdated(chats []*models.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		if !chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		}
		return chats[i].ID < chats[j].ID
	})
}

// Clone copies a chat so callers cannot mutate a stored record.
func Clone(c *models.Chat) *models.Chat {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = append([]models.Message(nil), c.Messages...)
	if out.Messages == nil {
		out.Messages = []models.Message{}
	}
	return &out
}
