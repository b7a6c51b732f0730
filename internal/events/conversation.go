package events

import "time"

// ConversationEventType represents conversation-specific event types.
type ConversationEventType string

// Conversation event type constants.
const (
	ConversationEventListed         ConversationEventType = "listed"
	ConversationEventCreated        ConversationEventType = "created"
	ConversationEventMessagesLoaded ConversationEventType = "messages_loaded"
	ConversationEventMessageAdded   ConversationEventType = "message_added"
	ConversationEventRenamed        ConversationEventType = "renamed"
	ConversationEventDeleted        ConversationEventType = "deleted"
	ConversationEventCleared        ConversationEventType = "cleared"
)

// ConversationEvent represents a change to the conversation store.
type ConversationEvent struct {
	ConversationID string
	Title          string
	Type           ConversationEventType
	Count          int // list size for Listed, message count otherwise
	Timestamp      time.Time

	// Optional fields
	MessageRole string // For MessageAdded
	MessageText string // For MessageAdded
}

// NewConversationsListedEvent creates a list-refreshed event.
func NewConversationsListedEvent(count int) ConversationEvent {
	return ConversationEvent{Type: ConversationEventListed, Count: count, Timestamp: time.Now()}
}

// NewConversationCreatedEvent creates a conversation created event.
func NewConversationCreatedEvent(id, title string) ConversationEvent {
	return ConversationEvent{ConversationID: id, Title: title, Type: ConversationEventCreated, Timestamp: time.Now()}
}

// NewMessagesLoadedEvent creates a messages loaded event.
func NewMessagesLoadedEvent(id string, count int) ConversationEvent {
	return ConversationEvent{ConversationID: id, Type: ConversationEventMessagesLoaded, Count: count, Timestamp: time.Now()}
}

// NewMessageAddedEvent creates a message added event.
func NewMessageAddedEvent(id, role, text string, count int) ConversationEvent {
	return ConversationEvent{
		ConversationID: id,
		Type:           ConversationEventMessageAdded,
		Count:          count,
		MessageRole:    role,
		MessageText:    text,
		Timestamp:      time.Now(),
	}
}

// NewConversationRenamedEvent creates a title change event.
func NewConversationRenamedEvent(id, title string) ConversationEvent {
	return ConversationEvent{ConversationID: id, Title: title, Type: ConversationEventRenamed, Timestamp: time.Now()}
}

// NewConversationDeletedEvent creates a conversation deleted event.
func NewConversationDeletedEvent(id string) ConversationEvent {
	return ConversationEvent{ConversationID: id, Type: ConversationEventDeleted, Timestamp: time.Now()}
}

// NewConversationClearedEvent creates an active-conversation cleared event.
func NewConversationClearedEvent(id string) ConversationEvent {
	return ConversationEvent{ConversationID: id, Type: ConversationEventCleared, Timestamp: time.Now()}
}
