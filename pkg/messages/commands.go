package messages

import (
	"context"

	"github.com/google/uuid"
	"go-tripplanner/pkg/memory/buffer"
	"go-tripplanner/pkg/models"
)

// NewSearch asks a search actor to run one category search. Ctx carries the
// turn deadline so a cancelled turn also cancels the tool calls.
type NewSearch struct {
	Ctx          context.Context
	RequestID    uuid.UUID
	Category     models.Category
	Query        string
	Conversation buffer.Conversation
}

type SearchResult struct {
	Category models.Category
	Options  []models.Option
	Warnings []string
}

type NewTurn struct {
	Ctx     context.Context
	ChatID  string
	Content string
}

type TurnResult struct {
	Response models.OutputResponse
	Err      error
}
