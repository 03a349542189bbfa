package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"go-tripplanner/pkg/logger"
)

const (
	DefaultMaxRetries  = 2
	DefaultBackoffBase = 2 * time.Second
	DefaultCallTimeout = 60 * time.Second
)

// Tool describes one tool exposed by the server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Result is the payload of one tool call.
type Result struct {
	Tool       string
	Texts      []string
	Structured json.RawMessage
}

// Gateway is a client to one MCP tool server. It holds at most one session;
// it is not meant to be shared between concurrent callers.
type Gateway struct {
	name        string
	connect     Connector
	client      *mcp.Client
	maxRetries  int
	backoffBase time.Duration
	callTimeout time.Duration

	mu      sync.Mutex
	session *mcp.ClientSession
	tools   []Tool
}

type Option func(*Gateway)

func WithName(name string) Option {
	return func(g *Gateway) { g.name = name }
}

func WithMaxRetries(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

func WithBackoffBase(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.backoffBase = d
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.callTimeout = d
		}
	}
}

func New(connect Connector, opts ...Option) *Gateway {
	g := &Gateway{
		name:        "tool-server",
		connect:     connect,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.client = mcp.NewClient(&mcp.Implementation{Name: "go-tripplanner", Version: "v1.0.0"}, nil)
	return g
}

// Open connects to the server. It is a no-op while a session is active.
func (g *Gateway) Open(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session != nil {
		return nil
	}

	l := log.With().Str(logger.AgentNameField, "gateway").Str("server", g.name).Logger()
	attempts := 0
	op := func() (*mcp.ClientSession, error) {
		attempts++
		transport, err := g.connect(ctx)
		if err != nil {
			return nil, err
		}
		return g.client.Connect(ctx, transport, nil)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.backoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	session, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(g.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.Warn().Err(err).Dur("retry_in", next).Msg("tool server connection failed, retrying")
		}),
	)
	if err != nil {
		return &ConnectionError{Server: g.name, Attempts: attempts, Err: err}
	}
	g.session = session
	g.tools = nil
	l.Debug().Int("attempts", attempts).Msg("tool server session opened")
	return nil
}

// ListTools returns the server's tool catalog, fetched once per session.
func (g *Gateway) ListTools(ctx context.Context) ([]Tool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil, ErrNotOpen
	}
	if g.tools != nil {
		return g.tools, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	tools := []Tool{}
	params := &mcp.ListToolsParams{}
	for {
		res, err := g.session.ListTools(callCtx, params)
		if err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{Op: "list tools", After: g.callTimeout}
			}
			return nil, fmt.Errorf("list tools: %w", err)
		}
		for _, t := range res.Tools {
			schema := rawJSON(t.InputSchema, "input_schema", t.Name)
			tools = append(tools, Tool{Name: t.Name, Description: t.Description, InputSchema: schema})
		}
		if res.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
	g.tools = tools
	return tools, nil
}

// Invoke calls the named tool with a JSON object of arguments.
func (g *Gateway) Invoke(ctx context.Context, tool string, args json.RawMessage) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return Result{}, &ToolInvocationError{Tool: tool, Err: ErrNotOpen}
	}

	arguments := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return Result{}, &ToolInvocationError{Tool: tool, Err: fmt.Errorf("arguments: %w", err)}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	res, err := g.session.CallTool(callCtx, &mcp.CallToolParams{Name: tool, Arguments: arguments})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Result{}, &TimeoutError{Op: "invoke " + tool, After: g.callTimeout}
		}
		return Result{}, &ToolInvocationError{Tool: tool, Err: err}
	}

	out := Result{Tool: tool, Texts: flattenContent(res.Content)}
	if res.StructuredContent != nil {
		out.Structured = rawJSON(res.StructuredContent, "structured_content", tool)
	}
	if res.IsError {
		msg := strings.Join(out.Texts, "; ")
		if msg == "" {
			msg = "unknown error"
		}
		return Result{}, &ToolInvocationError{Tool: tool, Err: errors.New(msg)}
	}
	return out, nil
}

// Close ends the session. Safe to call more than once or before Open.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	err := g.session.Close()
	g.session = nil
	g.tools = nil
	return err
}

// rawJSON encodes a field of a server reply. A value that cannot be encoded is
// left out rather than failing the whole reply.
func rawJSON(v any, field, tool string) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Debug().Err(err).Str(logger.ToolField, tool).Str("field", field).Msg("dropping unencodable field")
		return nil
	}
	return b
}

func flattenContent(content []mcp.Content) []string {
	var texts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok && strings.TrimSpace(tc.Text) != "" {
			texts = append(texts, tc.Text)
		}
	}
	return texts
}
