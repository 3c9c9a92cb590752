package models

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log. Messages are never mutated after
// they are appended.
type Message struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Text         string    `json:"text"`
	ContextLabel string    `json:"context_label,omitempty"` // badge shown next to the turn
	CreatedAt    time.Time `json:"created_at"`
}

// NewUserMessage creates a user message with an optional context label
func NewUserMessage(text, contextLabel string) Message {
	return Message{
		ID:           ulid.Make().String(),
		Role:         RoleUser,
		Text:         text,
		ContextLabel: contextLabel,
		CreatedAt:    time.Now(),
	}
}

// NewAssistantMessage creates an assistant message
func NewAssistantMessage(text string) Message {
	return Message{
		ID:        ulid.Make().String(),
		Role:      RoleAssistant,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// HasContext reports whether the message carries a context badge
func (m Message) HasContext() bool {
	return m.ContextLabel != ""
}
