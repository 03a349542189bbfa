package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go-tripplanner/internal/gateway"
	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/memory/buffer"
	"go-tripplanner/pkg/models"
	"go-tripplanner/pkg/prompts"
)

var ErrToolNotAllowed = errors.New("tool is not allowed for this agent")

// ToolCaller is the part of the tool gateway a search agent uses.
type ToolCaller interface {
	Open(ctx context.Context) error
	ListTools(ctx context.Context) ([]gateway.Tool, error)
	Invoke(ctx context.Context, tool string, args json.RawMessage) (gateway.Result, error)
	Close() error
}

type Result struct {
	Options  []models.Option
	Warnings []string
}

type Handler struct {
	capability Capability
	tools      ToolCaller
	completer  llm.Completer
}

type Option func(*Handler)

func WithToolCaller(tc ToolCaller) Option {
	return func(h *Handler) { h.tools = tc }
}

func WithCompleter(c llm.Completer) Option {
	return func(h *Handler) { h.completer = c }
}

func New(capability Capability, opts ...Option) (*Handler, error) {
	if err := validate.Struct(capability); err != nil {
		return nil, fmt.Errorf("capability %s: %w", capability.Category, err)
	}
	h := &Handler{capability: capability}
	for _, opt := range opts {
		opt(h)
	}
	if h.tools == nil {
		return nil, errors.New("search handler needs a tool caller")
	}
	if h.completer == nil {
		return nil, errors.New("search handler needs a completer")
	}
	return h, nil
}

func (h *Handler) Category() models.Category { return h.capability.Category }

type toolCall struct {
	Tool      string         `json:"tool" jsonschema:"name of the tool to call"`
	Arguments map[string]any `json:"arguments" jsonschema:"tool arguments matching its input schema"`
	Direction string         `json:"direction,omitempty" jsonschema:"outbound or return for flights"`
}

type invocationPlan struct {
	Calls []toolCall `json:"calls"`
}

// Search runs one category search. Failures never escape: whatever was found
// is returned together with a warning per problem.
func (h *Handler) Search(ctx context.Context, query string, conv buffer.Conversation) Result {
	cat := h.capability.Category
	l := log.With().Str(logger.AgentNameField, "search").Str(logger.CategoryField, string(cat)).Logger()
	var res Result
	warn := func(err error) {
		l.Warn().Err(err).Msg("search degraded")
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s search: %v", cat, err))
	}

	defer func() {
		if err := h.tools.Close(); err != nil {
			l.Debug().Err(err).Msg("closing tool session")
		}
	}()

	if err := h.tools.Open(ctx); err != nil {
		warn(err)
		return res
	}
	catalog, err := h.tools.ListTools(ctx)
	if err != nil {
		warn(err)
		return res
	}
	var allowed []gateway.Tool
	for _, t := range catalog {
		if h.capability.Allows(t.Name) {
			allowed = append(allowed, t)
		}
	}
	if len(allowed) == 0 {
		warn(fmt.Errorf("none of %v is offered by the tool server", h.capability.AllowedTools))
		return res
	}

	plan, err := h.plan(ctx, query, conv, allowed)
	if err != nil {
		warn(err)
		plan = h.fallbackPlan(query, allowed)
	}
	if len(plan.Calls) > h.capability.MaxCalls {
		l.Debug().Int("planned", len(plan.Calls)).Msg("truncating invocation plan")
		plan.Calls = plan.Calls[:h.capability.MaxCalls]
	}

	seen := map[models.Option]bool{}
	for _, call := range plan.Calls {
		if !h.capability.Allows(call.Tool) {
			warn(fmt.Errorf("%s: %w", call.Tool, ErrToolNotAllowed))
			continue
		}
		out, err := h.invoke(ctx, l, call)
		if err != nil {
			warn(err)
			continue
		}
		for _, o := range h.options(out, call) {
			if !seen[o] {
				seen[o] = true
				res.Options = append(res.Options, o)
			}
		}
	}
	l.Info().Int("options", len(res.Options)).Int("warnings", len(res.Warnings)).Msg("search done")
	return res
}

func (h *Handler) plan(ctx context.Context, query string, conv buffer.Conversation, tools []gateway.Tool) (invocationPlan, error) {
	var (
		names []string
		desc  strings.Builder
	)
	for _, t := range tools {
		names = append(names, t.Name)
		fmt.Fprintf(&desc, "- %s: %s\n", t.Name, t.Description)
		if len(t.InputSchema) > 0 {
			fmt.Fprintf(&desc, "  input schema: %s\n", t.InputSchema)
		}
	}
	instructions := h.capability.Instructions
	if h.capability.OutputShape != "" {
		instructions += "\nThe results should contain " + h.capability.OutputShape + "."
	}
	return llm.Generate[invocationPlan](ctx, h.completer, llm.Request{
		Task:     prompts.TaskSearchPlan,
		Template: prompts.SearchPlan,
		Inputs: map[string]any{
			"Instructions": instructions,
			"Tools":        desc.String(),
			"ToolNames":    names,
			"Category":     string(h.capability.Category),
			"Conversation": conv.Flatten(),
			"Query":        query,
			"MaxCalls":     h.capability.MaxCalls,
		},
	})
}

// fallbackPlan sends the task text to every allowed tool.
func (h *Handler) fallbackPlan(query string, tools []gateway.Tool) invocationPlan {
	var plan invocationPlan
	for _, t := range tools {
		if h.capability.Category == models.Flight {
			for _, dir := range []models.Direction{models.Outbound, models.Return} {
				plan.Calls = append(plan.Calls, toolCall{
					Tool:      t.Name,
					Arguments: map[string]any{"query": query, "direction": string(dir)},
					Direction: string(dir),
				})
			}
			continue
		}
		plan.Calls = append(plan.Calls, toolCall{Tool: t.Name, Arguments: map[string]any{"query": query}})
	}
	return plan
}

func (h *Handler) invoke(ctx context.Context, l zerolog.Logger, call toolCall) (gateway.Result, error) {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		return gateway.Result{}, fmt.Errorf("%s arguments: %w", call.Tool, err)
	}
	l.Debug().Str(logger.ToolField, call.Tool).RawJSON("args", args).Msg("invoking tool")
	out, err := h.tools.Invoke(ctx, call.Tool, args)
	if gateway.IsTimeout(err) && ctx.Err() == nil {
		l.Warn().Str(logger.ToolField, call.Tool).Msg("tool call timed out, retrying once")
		out, err = h.tools.Invoke(ctx, call.Tool, args)
	}
	return out, err
}

func (h *Handler) options(out gateway.Result, call toolCall) []models.Option {
	var opts []models.Option
	for _, text := range out.Texts {
		opts = append(opts, Normalize(text)...)
	}
	if len(opts) == 0 && len(out.Structured) > 0 {
		opts = Normalize(string(out.Structured))
	}
	if h.capability.Category != models.Flight {
		return opts
	}
	prefix := directionPrefix(models.Direction(strings.ToLower(call.Direction)))
	if prefix == "" {
		return opts
	}
	for i := range opts {
		if !strings.HasPrefix(opts[i].Text, prefix) {
			opts[i].Text = prefix + opts[i].Text
		}
	}
	return opts
}

func directionPrefix(d models.Direction) string {
	switch d {
	case models.Outbound:
		return "Outbound: "
	case models.Return:
		return "Return: "
	}
	return ""
}
