// Package bridge forwards hub events to a consumer outside the stores.
package bridge

import (
	"fmt"

	"github.com/guilhermegouw/coach/internal/events"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

// AuthEventMsg wraps a session event.
type AuthEventMsg struct {
	Event pubsub.Event[events.AuthEvent]
}

// ConversationEventMsg wraps a conversation store event.
type ConversationEventMsg struct {
	Event pubsub.Event[events.ConversationEvent]
}

// Describe renders a forwarded message as component, event type and details.
func Describe(msg any) (component, eventType, details string) {
	switch m := msg.(type) {
	case AuthEventMsg:
		p := m.Event.Payload
		details = p.Email
		if p.Error != nil {
			details = fmt.Sprintf("%s error=%v", details, p.Error)
		}
		return "auth", string(p.Type), details
	case ConversationEventMsg:
		p := m.Event.Payload
		details = fmt.Sprintf("id=%s count=%d", p.ConversationID, p.Count)
		if p.Title != "" {
			details += fmt.Sprintf(" title=%q", p.Title)
		}
		if p.MessageRole != "" {
			details += " role=" + p.MessageRole
		}
		return "conversation", string(p.Type), details
	default:
		return "bridge", "unknown", fmt.Sprintf("%T", msg)
	}
}
