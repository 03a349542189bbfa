package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)

type Chat struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Message is one persisted record of a chat. User messages carry Text,
// assistant messages carry Response.
type Message struct {
	Role     Role
	ChatID   string
	Text     string
	Response *OutputResponse
}

type userRecord struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	ChatID  string `json:"chat_id"`
}

type assistantRecord struct {
	Role     Role     `json:"role"`
	Content  []Option `json:"content"`
	Plan     *Plan    `json:"plan"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	ChatID   string   `json:"chat_id"`
}

func NewUserMessage(chatID, text string) Message {
	return Message{Role: UserRole, ChatID: chatID, Text: text}
}

func NewAssistantMessage(chatID string, res OutputResponse) Message {
	return Message{Role: AssistantRole, ChatID: chatID, Response: &res}
}

func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Role {
	case UserRole:
		return json.Marshal(userRecord{Role: m.Role, Content: m.Text, ChatID: m.ChatID})
	case AssistantRole:
		rec := assistantRecord{Role: m.Role, Content: []Option{}, ChatID: m.ChatID}
		if m.Response != nil {
			if m.Response.Contents != nil {
				rec.Content = m.Response.Contents
			}
			rec.Plan = m.Response.Plan
			rec.Message = m.Response.Message
			rec.Warnings = m.Response.Warnings
		}
		return json.Marshal(rec)
	}
	return nil, fmt.Errorf("unknown role in message: %q", m.Role)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var probe struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	switch probe.Role {
	case UserRole:
		var rec userRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return err
		}
		*m = Message{Role: rec.Role, ChatID: rec.ChatID, Text: rec.Content}
	case AssistantRole:
		var rec assistantRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return err
		}
		*m = Message{Role: rec.Role, ChatID: rec.ChatID, Response: &OutputResponse{
			Plan:     rec.Plan,
			Contents: rec.Content,
			Message:  rec.Message,
			Warnings: rec.Warnings,
		}}
	default:
		return fmt.Errorf("unknown role in message: %q", probe.Role)
	}
	return nil
}
