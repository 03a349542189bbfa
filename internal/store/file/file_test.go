package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tripplanner/internal/store"
	"go-tripplanner/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(filepath.Join(t.TempDir(), "data", "db.json"))
		require.NoError(t, err)
		return s
	})
}

func TestDocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := New(path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chats":[]}`, string(b))

	require.NoError(t, s.Put(context.Background(), storetest.Chat("a", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))))
	b, err = os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Chats []struct {
			ID       string            `json:"id"`
			Messages []json.RawMessage `json:"messages"`
		} `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Len(t, doc.Chats, 1)
	assert.Equal(t, "a", doc.Chats[0].ID)
	assert.JSONEq(t, `{"role":"user","content":"From Istanbul to Ankara, 2025-11-03 until 2025-11-04","chat_id":"a"}`, string(doc.Chats[0].Messages[0]))
	assert.JSONEq(t, `{"role":"assistant","content":[{"text":"Bus 650 TL"}],"plan":"free text plan","chat_id":"a"}`, string(doc.Chats[0].Messages[3]))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), storetest.Chat("a", time.Now().UTC())))

	reopened, err := New(path)
	require.NoError(t, err)
	_, err = reopened.Get(context.Background(), "a")
	assert.NoError(t, err)
}

func TestCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path)
	assert.Error(t, err)
}
