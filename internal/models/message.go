package models

import (
	"fmt"
	"time"
)

// Role represents the author of a message.
type Role string

// Role constants. The set is closed.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts exactly "user" or "assistant".
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role %q: must be %q or %q", s, RoleUser, RoleAssistant)
	}
}

// Message is a single turn in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessageRequest is the body posted when appending a message.
type NewMessageRequest struct {
	Content string `json:"content"`
	Role    Role   `json:"role"`
}
