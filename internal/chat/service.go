// Package chat manages chat records and runs conversation turns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	guardianActor "go-tripplanner/internal/agents/guardian/actor"
	"go-tripplanner/internal/agents/guardian/handler"
	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/messages"
	"go-tripplanner/pkg/models"
)

const (
	DefaultTurnTimeout = 90 * time.Second
	titleLength        = 60
	// replyGrace lets a guardian that saw its context expire still answer.
	replyGrace = 5 * time.Second
)

var ErrTurnTimeout = errors.New("turn timed out")

type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Title        string    `json:"title"`
}

type Service struct {
	root        *actor.RootContext
	store       store.Store
	sessions    *sessions
	turnTimeout time.Duration
	now         func() time.Time

	// mu orders turn saves against deletes so a deleted chat stays deleted.
	mu sync.Mutex
}

type Option func(*Service)

func WithTurnTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.turnTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(root *actor.RootContext, st store.Store, guardian *handler.Handler, opts ...Option) *Service {
	s := &Service{
		root:        root,
		store:       st,
		turnTimeout: DefaultTurnTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newSessions(root, func(chatID string) *actor.Props {
		return actor.PropsFromProducer(guardianActor.New(chatID, guardian, turnStore{s}, s.now))
	})
	return s
}

func (s *Service) Create(ctx context.Context) (*models.Chat, error) {
	now := s.now().UTC()
	chat := &models.Chat{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
	if err := s.store.Put(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	log.Info().Str(logger.ChatIDField, chat.ID).Msg("chat created")
	return chat, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Chat, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	chats, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(chats))
	for _, c := range chats {
		out = append(out, Summary{
			ID:           c.ID,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
			MessageCount: len(c.Messages),
			Title:        title(c),
		})
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.store.Delete(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.sessions.remove(id)
	log.Info().Str(logger.ChatIDField, id).Msg("chat deleted")
	return nil
}

// SendMessage runs one turn on the chat's guardian. Turns of one chat never
// overlap; the turn keeps running if the caller goes away, bounded by the
// turn timeout.
func (s *Service) SendMessage(ctx context.Context, id, content string) (models.OutputResponse, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return models.OutputResponse{}, err
	}

	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.turnTimeout)
	defer cancel()

	pid := s.sessions.get(id)
	res, err := s.root.RequestFuture(pid, messages.NewTurn{Ctx: turnCtx, ChatID: id, Content: content}, s.turnTimeout+replyGrace).Result()
	if err != nil {
		log.Error().Err(err).Str(logger.ChatIDField, id).Msg("guardian did not answer")
		return models.OutputResponse{}, ErrTurnTimeout
	}
	tr, ok := res.(messages.TurnResult)
	if !ok {
		return models.OutputResponse{}, fmt.Errorf("unexpected reply %T", res)
	}
	if tr.Err != nil {
		if errors.Is(tr.Err, context.DeadlineExceeded) {
			return models.OutputResponse{}, ErrTurnTimeout
		}
		return models.OutputResponse{}, tr.Err
	}
	if tr.Response.Contents == nil {
		tr.Response.Contents = []models.Option{}
	}
	return tr.Response, nil
}

// turnStore is the store a guardian saves its turns through. A save only
// lands while the chat still exists.
type turnStore struct {
	s *Service
}

func (t turnStore) Get(ctx context.Context, id string) (*models.Chat, error) {
	return t.s.store.Get(ctx, id)
}

func (t turnStore) Put(ctx context.Context, chat *models.Chat) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, err := t.s.store.Get(ctx, chat.ID); err != nil {
		return err
	}
	return t.s.store.Put(ctx, chat)
}

func title(c *models.Chat) string {
	for _, m := range c.Messages {
		if m.Role != models.UserRole {
			continue
		}
		t := strings.Join(strings.Fields(m.Text), " ")
		if utf8.RuneCountInString(t) > titleLength {
			t = string([]rune(t)[:titleLength]) + "…"
		}
		return t
	}
	return "New chat"
}
