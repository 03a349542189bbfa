// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/models"
)

func Chat(id string, updated time.Time) *models.Chat {
	return &models.Chat{
		ID:        id,
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
		Messages: []models.Message{
			models.NewUserMessage(id, "From Istanbul to Ankara, 2025-11-03 until 2025-11-04"),
			models.NewAssistantMessage(id, models.OutputResponse{
				Plan: models.ItemsPlan([]models.PlanItem{
					{DayNumber: 1, Hour: "afternoon", ActivityTitle: "Anıtkabir", ActivityContent: "Visit the mausoleum."},
					{DayNumber: 2, Hour: "08:25", ActivityTitle: "Travel day", ActivityContent: "Transit: Return: PC2667"},
				}),
				Contents: []models.Option{{Text: "Outbound: PC2650 980 TL"}, {Text: "Kızılay Budget Inn", Link: "https://img.example.com/budget-inn.jpg"}},
				Warnings: []string{"car search: provider down"},
			}),
			models.NewUserMessage(id, "thanks"),
			models.NewAssistantMessage(id, models.OutputResponse{Plan: models.TextPlan("free text plan"), Contents: []models.Option{{Text: "Bus 650 TL"}}}),
		},
	}
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)

	t.Run("missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "nope"), store.ErrNotFound)
		chats, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, chats)
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		want := Chat("a", base)
		require.NoError(t, s.Put(ctx, want))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("overwrite", func(t *testing.T) {
		s := newStore(t)
		c := Chat("a", base)
		require.NoError(t, s.Put(ctx, c))
		c.Messages = c.Messages[:1]
		c.UpdatedAt = base.Add(time.Minute)
		require.NoError(t, s.Put(ctx, c))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, got.Messages, 1)
		assert.Equal(t, base.Add(time.Minute), got.UpdatedAt)
		chats, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, chats, 1)
	})

	t.Run("list order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, Chat("old", base)))
		require.NoError(t, s.Put(ctx, Chat("new", base.Add(2*time.Hour))))
		require.NoError(t, s.Put(ctx, Chat("mid", base.Add(time.Hour))))

		chats, err := s.List(ctx)
		require.NoError(t, err)
		var ids []string
		for _, c := range chats {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"new", "mid", "old"}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, Chat("a", base)))
		require.NoError(t, s.Put(ctx, Chat("b", base)))
		require.NoError(t, s.Delete(ctx, "a"))

		_, err := s.Get(ctx, "a")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Get(ctx, "b")
		assert.NoError(t, err)
	})

	t.Run("isolation", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, Chat("a", base)))
		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		got.Messages = append(got.Messages, models.NewUserMessage("a", "not saved"))

		again, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, again.Messages, 4)
	})

	t.Run("empty chat", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, &models.Chat{ID: "e", CreatedAt: base, UpdatedAt: base, Messages: []models.Message{}}))
		got, err := s.Get(ctx, "e")
		require.NoError(t, err)
		assert.NotNil(t, got.Messages)
		assert.Empty(t, got.Messages)
	})
}
