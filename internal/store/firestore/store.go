package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/models"
)

const DefaultCollection = "chats"

type Store struct {
	client     *firestore.Client
	collection string
}

// New creates a Firestore backed store in the given project.
func New(ctx context.Context, projectID, collection string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Store{client: client, collection: collection}, nil
}

func (s *Store) chats() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// chatDoc keeps the messages as encoded JSON: plans are either a string or
// a list, which Firestore fields cannot express.
type chatDoc struct {
	ID           string    `firestore:"id"`
	CreatedAt    time.Time `firestore:"created_at"`
	UpdatedAt    time.Time `firestore:"updated_at"`
	MessageCount int       `firestore:"message_count"`
	Messages     string    `firestore:"messages"`
}

func toDoc(c *models.Chat) (chatDoc, error) {
	msgs := c.Messages
	if msgs == nil {
		msgs = []models.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return chatDoc{}, err
	}
	return chatDoc{
		ID:           c.ID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(msgs),
		Messages:     string(b),
	}, nil
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*models.Chat, error) {
	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", snap.Ref.ID, err)
	}
	chat := &models.Chat{ID: doc.ID, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt, Messages: []models.Message{}}
	if doc.Messages != "" {
		if err := json.Unmarshal([]byte(doc.Messages), &chat.Messages); err != nil {
			return nil, fmt.Errorf("decode chat %s messages: %w", snap.Ref.ID, err)
		}
	}
	return chat, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Chat, error) {
	snap, err := s.chats().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("firestore Get: %w", err)
	}
	return fromSnapshot(snap)
}

func (s *Store) List(ctx context.Context) ([]*models.Chat, error) {
	iter := s.chats().OrderBy("updated_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	out := []*models.Chat{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore List: %w", err)
		}
		chat, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, chat)
	}
	store.SortByUpdated(out)
	return out, nil
}

func (s *Store) Put(ctx context.Context, chat *models.Chat) error {
	doc, err := toDoc(chat)
	if err != nil {
		return fmt.Errorf("encode chat %s: %w", chat.ID, err)
	}
	if _, err := s.chats().Doc(chat.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore Put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ref := s.chats().Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		return fmt.Errorf("firestore Delete: %w", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("firestore Delete: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
