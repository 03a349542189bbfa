package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"go-tripplanner/internal/chat"
	"go-tripplanner/internal/gateway"
	"go-tripplanner/internal/store"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/models"
)

// Chats is the chat service the server exposes.
type Chats interface {
	Create(ctx context.Context) (*models.Chat, error)
	Get(ctx context.Context, id string) (*models.Chat, error)
	List(ctx context.Context) ([]chat.Summary, error)
	Delete(ctx context.Context, id string) error
	SendMessage(ctx context.Context, id, content string) (models.OutputResponse, error)
}

// Catalog lists the tools of the remote tool server.
type Catalog func(ctx context.Context) ([]gateway.Tool, error)

type messageRequest struct {
	Role    string `json:"role" validate:"required,eq=user"`
	Content string `json:"content" validate:"required"`
}

type messageResponse struct {
	Role     models.Role     `json:"role"`
	Content  []models.Option `json:"content"`
	Plan     *models.Plan    `json:"plan"`
	Message  string          `json:"message,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type Server struct {
	server   *http.Server
	chats    Chats
	catalog  Catalog
	validate *validator.Validate
}

type Option func(*Server)

func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.server.ReadTimeout = read
		s.server.WriteTimeout = write
	}
}

func New(addr string, chats Chats, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		chats:    chats,
		catalog:  catalog,
		validate: validator.New(),
	}
	r := chi.NewRouter()
	r.Use(logMiddleware())
	s.routes(r)
	r.Route("/api", s.routes)

	s.server = &http.Server{Addr: addr, Handler: r}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) routes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Get("/mcp/tools", s.listTools)
	r.Get("/chats", s.listChats)
	r.Post("/chat", s.createChat)
	r.Get("/chat/{id}", s.getChat)
	r.Delete("/chat/{id}", s.deleteChat)
	r.Post("/chat/{id}/message", s.sendMessage)
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.chats.Create(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, c)
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.chats.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.chats.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req := messageRequest{}
	if err := unmarshalRequestBody(r, &req); err != nil {
		log.Debug().Err(err).Msg("cannot parse body")
		writeError(w, r, http.StatusBadRequest, "bad_request", "unable to parse body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "role must be \"user\" and content must not be empty")
		return
	}

	res, err := s.chats.SendMessage(r.Context(), id, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, messageResponse{
		Role:     models.AssistantRole,
		Content:  res.Contents,
		Plan:     res.Plan,
		Message:  res.Message,
		Warnings: res.Warnings,
	})
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "no tool server configured")
		return
	}
	tools, err := s.catalog(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("unable to list tools")
		writeError(w, r, http.StatusBadGateway, "tool_server", err.Error())
		return
	}
	render.JSON(w, r, tools)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	id := chi.URLParam(r, "id")
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", fmt.Sprintf("chat %q not found", id))
	case errors.Is(err, chat.ErrTurnTimeout):
		log.Warn().Str(logger.ChatIDField, id).Msg("turn timed out")
		writeError(w, r, http.StatusGatewayTimeout, "turn_timeout", "the assistant took too long to answer, please try again")
	default:
		log.Error().Err(err).Str(logger.ChatIDField, id).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func logMiddleware() func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(log.Logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("agent"))
	c = c.Append(hlog.RefererHandler("referer"))
	c = c.Append(hlog.RequestIDHandler(logger.RequestIDField, "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))

	return c.Then
}

func unmarshalRequestBody(req *http.Request, output interface{}) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	return json.Unmarshal(body, output)
}
