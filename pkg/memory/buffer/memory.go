package buffer

import (
	"fmt"
	"strings"

	"go-tripplanner/pkg/models"
)

// Turn is one role-tagged entry of a conversation. User turns carry Text,
// assistant turns carry the structured Response they produced.
type Turn struct {
	Role     models.Role
	Text     string
	Response *models.OutputResponse
}

// Conversation is an ordered, append-only transcript.
type Conversation struct {
	turns []Turn
}

func FromChat(chat *models.Chat) Conversation {
	c := Conversation{turns: make([]Turn, 0, len(chat.Messages))}
	for _, m := range chat.Messages {
		c.Add(Turn{Role: m.Role, Text: m.Text, Response: m.Response})
	}
	return c
}

func (c *Conversation) Add(t Turn) {
	c.turns = append(c.turns, t)
}

func (c *Conversation) AddUser(text string) {
	c.Add(Turn{Role: models.UserRole, Text: text})
}

func (c Conversation) Len() int { return len(c.turns) }

// Turns returns a copy of the transcript.
func (c Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// LastUser returns the most recent user text.
func (c Conversation) LastUser() string {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == models.UserRole {
			return c.turns[i].Text
		}
	}
	return ""
}

// Flatten renders the transcript as role-prefixed text for a completion prompt.
func (c Conversation) Flatten() string {
	var b strings.Builder
	for i, t := range c.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch t.Role {
		case models.UserRole:
			fmt.Fprintf(&b, "User: %s", t.Text)
		case models.AssistantRole:
			fmt.Fprintf(&b, "Assistant: %s", renderResponse(t))
		}
	}
	return b.String()
}

func renderResponse(t Turn) string {
	if t.Response == nil {
		return t.Text
	}
	r := t.Response
	var parts []string
	if r.Message != "" {
		parts = append(parts, r.Message)
	}
	if len(r.Contents) > 0 {
		texts := make([]string, 0, len(r.Contents))
		for _, o := range r.Contents {
			texts = append(texts, o.Text)
		}
		parts = append(parts, "selected options: "+strings.Join(texts, "; "))
	}
	if r.Plan != nil {
		if r.Plan.IsText() {
			if r.Plan.Text != "" {
				parts = append(parts, "plan: "+r.Plan.Text)
			}
		} else {
			parts = append(parts, fmt.Sprintf("plan: %d days planned", len(r.Plan.Days())))
		}
	}
	return strings.Join(parts, " | ")
}
