package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"

	"go-tripplanner/internal/agents/guardian/handler"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/memory/buffer"
	"go-tripplanner/pkg/messages"
	"go-tripplanner/pkg/models"
)

// ChatStore loads and saves the chat a guardian is responsible for.
type ChatStore interface {
	Get(ctx context.Context, id string) (*models.Chat, error)
	Put(ctx context.Context, chat *models.Chat) error
}

// Guardian owns one chat. Its mailbox runs the turns of that chat one at a
// time.
type Guardian struct {
	chatID  string
	handler *handler.Handler
	store   ChatStore
	state   models.State
	now     func() time.Time
}

func New(chatID string, h *handler.Handler, store ChatStore, now func() time.Time) actor.Producer {
	if now == nil {
		now = time.Now
	}
	return func() actor.Actor {
		return &Guardian{
			chatID:  chatID,
			handler: h,
			store:   store,
			state:   models.Collecting,
			now:     now,
		}
	}
}

func (agent *Guardian) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "guardian", logger.ChatIDField: agent.chatID}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor and its children")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.NewTurn:
		l.Info().Msg("NewTurn received")
		ac.Respond(agent.turn(msg))
		l.Debug().Str(logger.StageField, string(agent.state)).Msg("turn finished")
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}

func (agent *Guardian) turn(msg messages.NewTurn) (res messages.TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str(logger.ChatIDField, agent.chatID).Msgf("turn panicked: %v", r)
			res = messages.TurnResult{Err: fmt.Errorf("turn failed: %v", r)}
		}
	}()
	ctx := msg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// a turn that ran out of time is still recorded
	saveCtx := context.WithoutCancel(ctx)

	chat, err := agent.store.Get(ctx, msg.ChatID)
	if err != nil {
		return messages.TurnResult{Err: fmt.Errorf("load chat: %w", err)}
	}
	chat.Messages = append(chat.Messages, models.NewUserMessage(chat.ID, msg.Content))
	chat.UpdatedAt = agent.now().UTC()

	outcome := agent.handler.Handle(ctx, buffer.FromChat(chat))
	agent.state = outcome.State

	if err := ctx.Err(); err != nil {
		if perr := agent.store.Put(saveCtx, chat); perr != nil {
			log.Error().Err(perr).Str(logger.ChatIDField, chat.ID).Msg("saving timed out turn")
		}
		return messages.TurnResult{Err: err}
	}

	chat.Messages = append(chat.Messages, models.NewAssistantMessage(chat.ID, outcome.Response))
	chat.UpdatedAt = agent.now().UTC()
	if err := agent.store.Put(saveCtx, chat); err != nil {
		return messages.TurnResult{Err: fmt.Errorf("save chat: %w", err)}
	}
	return messages.TurnResult{Response: outcome.Response}
}
