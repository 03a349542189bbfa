package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guardian "go-tripplanner/internal/agents/guardian/handler"
	search "go-tripplanner/internal/agents/search/handler"
	supervisor "go-tripplanner/internal/agents/supervisor/handler"
	"go-tripplanner/internal/chat"
	"go-tripplanner/internal/gateway"
	"go-tripplanner/internal/gateway/gatewaytest"
	"go-tripplanner/internal/store/memory"
	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tools := gatewaytest.NewServer()
	newGateway := func() *gateway.Gateway {
		return gateway.New(tools.Connector(), gateway.WithBackoffBase(time.Millisecond))
	}
	root := actor.NewActorSystem().Root
	completer := llm.NewMock()
	sup := supervisor.New(root, completer, func(models.Category) search.ToolCaller { return newGateway() })
	chats := chat.New(root, memory.New(), guardian.New(completer, sup))
	catalog := func(ctx context.Context) ([]gateway.Tool, error) {
		g := newGateway()
		defer g.Close()
		if err := g.Open(ctx); err != nil {
			return nil, err
		}
		return g.ListTools(ctx)
	}

	ts := httptest.NewServer(New(":0", chats, catalog).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, b
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/health", "/api/health"} {
		res, body := do(t, http.MethodGet, ts.URL+path, "")
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, string(body))
	}
}

func TestChatEndpoints(t *testing.T) {
	ts := newTestServer(t)

	res, body := do(t, http.MethodPost, ts.URL+"/api/chat", "")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	created := struct {
		ID       string            `json:"id"`
		Messages []json.RawMessage `json:"messages"`
	}{}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	assert.NotNil(t, created.Messages)
	assert.Empty(t, created.Messages)

	res, body = do(t, http.MethodPost, ts.URL+"/api/chat/"+created.ID+"/message",
		`{"role":"user","content":"I want to fly from Istanbul to Ankara on 2025-11-03"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	reply := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, "assistant", reply["role"])
	assert.Equal(t, []any{}, reply["content"])
	assert.Nil(t, reply["plan"])
	assert.Contains(t, reply["message"], "return date")

	res, body = do(t, http.MethodGet, ts.URL+"/chats", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var summaries []chat.Summary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].MessageCount)
	assert.Equal(t, "I want to fly from Istanbul to Ankara on 2025-11-03", summaries[0].Title)

	res, body = do(t, http.MethodGet, ts.URL+"/chat/"+created.ID, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got models.Chat
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.UserRole, got.Messages[0].Role)
	assert.Equal(t, models.AssistantRole, got.Messages[1].Role)

	res, _ = do(t, http.MethodDelete, ts.URL+"/chat/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res, _ = do(t, http.MethodDelete, ts.URL+"/chat/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestFullTurnOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, body := do(t, http.MethodPost, ts.URL+"/chat", "")
	created := struct {
		ID string `json:"id"`
	}{}
	require.NoError(t, json.Unmarshal(body, &created))

	res, body := do(t, http.MethodPost, ts.URL+"/chat/"+created.ID+"/message",
		`{"role":"user","content":"From Istanbul to Ankara, 2025-11-03 until 2025-11-10. preferences: budget economy, one child"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	reply := struct {
		Role    string          `json:"role"`
		Content []models.Option `json:"content"`
		Plan    *models.Plan    `json:"plan"`
	}{}
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, "assistant", reply.Role)
	assert.Len(t, reply.Content, 4)
	require.NotNil(t, reply.Plan)
	assert.False(t, reply.Plan.IsText())
}

func TestSendMessageValidation(t *testing.T) {
	ts := newTestServer(t)
	_, body := do(t, http.MethodPost, ts.URL+"/chat", "")
	created := struct {
		ID string `json:"id"`
	}{}
	require.NoError(t, json.Unmarshal(body, &created))

	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"wrong role", `{"role":"assistant","content":"hi"}`},
		{"empty content", `{"role":"user","content":"   "}`},
		{"missing role", `{"content":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := do(t, http.MethodPost, ts.URL+"/chat/"+created.ID+"/message", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Contains(t, string(body), `"code":"bad_request"`)
		})
	}
}

func TestUnknownChat(t *testing.T) {
	ts := newTestServer(t)

	res, body := do(t, http.MethodGet, ts.URL+"/chat/nope", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, string(body), `"code":"not_found"`)

	res, _ = do(t, http.MethodPost, ts.URL+"/chat/nope/message", `{"role":"user","content":"hi"}`)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestToolCatalog(t *testing.T) {
	ts := newTestServer(t)

	res, body := do(t, http.MethodGet, ts.URL+"/api/mcp/tools", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var tools []gateway.Tool
	require.NoError(t, json.Unmarshal(body, &tools))
	names := []string{}
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"flight_search", "car_search", "bus_search", "hotel_search", "flight_weather_forecast"}, names)
}

type failingChats struct {
	*chat.Service
	err error
}

func (f failingChats) Get(context.Context, string) (*models.Chat, error) { return nil, f.err }

func (f failingChats) SendMessage(context.Context, string, string) (models.OutputResponse, error) {
	return models.OutputResponse{}, f.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timeout", chat.ErrTurnTimeout, http.StatusGatewayTimeout, "turn_timeout"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(New(":0", failingChats{err: tt.err}, nil).Handler())
			defer ts.Close()

			res, body := do(t, http.MethodPost, ts.URL+"/chat/abc/message", `{"role":"user","content":"hi"}`)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Contains(t, string(body), `"code":"`+tt.code+`"`)
			assert.NotContains(t, string(body), "disk on fire")
		})
	}
}

func TestToolCatalogUnavailable(t *testing.T) {
	ts := httptest.NewServer(New(":0", failingChats{}, nil).Handler())
	defer ts.Close()

	res, _ := do(t, http.MethodGet, ts.URL+"/mcp/tools", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}
