package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	planner "go-tripplanner/internal/agents/planner/handler"
	searchActor "go-tripplanner/internal/agents/search/actor"
	search "go-tripplanner/internal/agents/search/handler"
	"go-tripplanner/internal/agents/selector"
	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/memory/buffer"
	"go-tripplanner/pkg/messages"
	"go-tripplanner/pkg/models"
	"go-tripplanner/pkg/prompts"
	"go-tripplanner/pkg/template"
)

const DefaultSearchTimeout = 2 * time.Minute

// Handoff is everything the guardian passes on once the trip is complete.
type Handoff struct {
	Conversation buffer.Conversation
	Trip         models.TripParameters
	Preferences  string
}

// ToolsFactory returns a fresh tool caller owned by a single search branch.
type ToolsFactory func(category models.Category) search.ToolCaller

type Handler struct {
	root          *actor.RootContext
	completer     llm.Completer
	tools         ToolsFactory
	capabilities  map[models.Category]search.Capability
	selector      *selector.Selector
	planner       *planner.Handler
	searchTimeout time.Duration
	onStage       func(models.State)
}

type Option func(*Handler)

func WithCapabilities(caps map[models.Category]search.Capability) Option {
	return func(h *Handler) { h.capabilities = caps }
}

// WithSearchTimeout bounds the fan-out when the context has no deadline.
func WithSearchTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.searchTimeout = d
		}
	}
}

func WithStageHook(fn func(models.State)) Option {
	return func(h *Handler) { h.onStage = fn }
}

func New(root *actor.RootContext, completer llm.Completer, tools ToolsFactory, opts ...Option) *Handler {
	h := &Handler{
		root:          root,
		completer:     completer,
		tools:         tools,
		capabilities:  search.DefaultCapabilities(),
		selector:      selector.New(completer),
		planner:       planner.New(completer),
		searchTimeout: DefaultSearchTimeout,
		onStage:       func(models.State) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run makes a single pass through search, selection and planning. Every
// stage absorbs its own failures so a response is always produced.
func (h *Handler) Run(ctx context.Context, hand Handoff) models.OutputResponse {
	id := uuid.New()
	l := log.With().Str(logger.AgentNameField, "supervisor").Str(logger.RequestIDField, id.String()).Logger()
	stage := func(s models.State) {
		l.Debug().Str(logger.StageField, string(s)).Msg("stage")
		h.onStage(s)
	}
	stage(models.AwaitingDelegation)

	var warnings []string
	span, err := hand.Trip.Span()
	if err != nil {
		l.Warn().Err(err).Msg("invalid trip span")
		warnings = append(warnings, fmt.Sprintf("trip dates: %v", err))
	}

	stage(models.Searching)
	found, searchWarnings := h.search(ctx, id, hand)
	warnings = append(warnings, searchWarnings...)

	stage(models.Reducing)
	selected := h.selector.Select(ctx, found, hand.Preferences)
	warnings = append(warnings, selected.Warnings...)

	stage(models.Planning)
	plan := h.planner.Plan(ctx, planner.Input{
		Selected:    selected.Picks,
		Weather:     selected.Weather,
		Preferences: hand.Preferences,
		Destination: hand.Trip.ArrivalLocation,
		Span:        span,
	})

	stage(models.Done)
	l.Info().Int("found", len(found)).Int("selected", len(selected.Picks)).Int("warnings", len(warnings)).Msg("trip planned")
	return models.OutputResponse{
		Plan:     plan,
		Contents: selected.Options(),
		Warnings: warnings,
	}
}

type branch struct {
	category models.Category
	pid      *actor.PID
	future   *actor.Future
}

// search spawns one actor per category and waits for every one of them.
func (h *Handler) search(ctx context.Context, id uuid.UUID, hand Handoff) ([]models.Found, []string) {
	var (
		warnings []string
		branches []branch
	)
	timeout := h.searchTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline) + time.Second
	}

	for _, cat := range models.SearchCategories {
		capability, ok := h.capabilities[cat]
		if !ok {
			continue
		}
		query, err := template.Parse(prompts.SearchQueries[string(cat)], queryInput{TripParameters: hand.Trip, Preferences: hand.Preferences})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s search: %v", cat, err))
			continue
		}
		agent, err := search.New(capability, search.WithToolCaller(h.tools(cat)), search.WithCompleter(h.completer))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s search: %v", cat, err))
			continue
		}
		pid := h.root.Spawn(actor.PropsFromProducer(searchActor.New(agent)))
		branches = append(branches, branch{
			category: cat,
			pid:      pid,
			future: h.root.RequestFuture(pid, messages.NewSearch{
				Ctx:          ctx,
				RequestID:    id,
				Category:     cat,
				Query:        query,
				Conversation: hand.Conversation,
			}, timeout),
		})
	}

	var found []models.Found
	for _, b := range branches {
		res, err := b.future.Result()
		if err != nil {
			log.Warn().Str(logger.CategoryField, string(b.category)).Err(err).Msg("search branch did not answer")
			warnings = append(warnings, fmt.Sprintf("%s search: %v", b.category, err))
			h.root.Stop(b.pid)
			continue
		}
		out, ok := res.(messages.SearchResult)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s search: unexpected reply %T", b.category, res))
			continue
		}
		for _, o := range out.Options {
			found = append(found, models.Found{Category: b.category, Option: o})
		}
		warnings = append(warnings, out.Warnings...)
	}
	return found, warnings
}

type queryInput struct {
	models.TripParameters
	Preferences string
}
