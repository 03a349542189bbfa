package actor

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"

	"go-tripplanner/internal/agents/search/handler"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/messages"
	"go-tripplanner/pkg/models"
)

// Search runs exactly one category search and stops itself.
type Search struct {
	handler *handler.Handler
	state   models.State
}

func New(h *handler.Handler) actor.Producer {
	return func() actor.Actor {
		return &Search{handler: h, state: models.AwaitingDelegation}
	}
}

func (agent *Search) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "search"}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor and its children")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.NewSearch:
		l.Info().Str(logger.RequestIDField, msg.RequestID.String()).Str(logger.CategoryField, string(msg.Category)).Msg("NewSearch received from supervisor")
		agent.state = models.Searching
		ac.Respond(agent.search(msg))
		agent.state = models.Done
		ac.Stop(ac.Self())
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}

func (agent *Search) search(msg messages.NewSearch) (res messages.SearchResult) {
	res.Category = msg.Category
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str(logger.CategoryField, string(msg.Category)).Msgf("search panicked: %v", r)
			res = messages.SearchResult{
				Category: msg.Category,
				Warnings: []string{fmt.Sprintf("%s search: internal error", msg.Category)},
			}
		}
	}()
	out := agent.handler.Search(msg.Ctx, msg.Query, msg.Conversation)
	res.Options = out.Options
	res.Warnings = out.Warnings
	return res
}
