package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Normalization rules, applied identically to every response:
//
//   - Lists: a bare JSON array is used as-is; otherwise the array under the
//     entity's plural field ("conversations", "messages"); anything else is
//     an empty list.
//   - Single records: the object under the entity's field ("conversation",
//     "message", "user") wins; otherwise the root object if it carries an
//     identity.
//   - Identity: "id", then "_id", then "<entity>_id".
//   - Other fields: snake_case first, then camelCase.
//   - Timestamps: RFC 3339 strings, or unix numbers (milliseconds when the
//     value exceeds 1e12, seconds otherwise). Unparseable values are zero.

// ConversationsFromJSON normalizes a conversation list response.
func ConversationsFromJSON(data []byte) []Conversation {
	items := listEnvelope(data, "conversations")
	convs := make([]Conversation, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		convs = append(convs, conversationFromResult(item))
	}
	return convs
}

// ConversationFromJSON normalizes a single-conversation response.
func ConversationFromJSON(data []byte) (Conversation, bool) {
	r, ok := objectEnvelope(data, "conversation")
	if !ok {
		return Conversation{}, false
	}
	return conversationFromResult(r), true
}

// MessagesFromJSON normalizes a message list response. conversationID fills
// in records that do not name their conversation.
func MessagesFromJSON(data []byte, conversationID string) []Message {
	items := listEnvelope(data, "messages")
	msgs := make([]Message, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		msgs = append(msgs, messageFromResult(item, conversationID))
	}
	return msgs
}

// MessageFromJSON normalizes a single-message response.
func MessageFromJSON(data []byte, conversationID string) (Message, bool) {
	r, ok := objectEnvelope(data, "message")
	if !ok {
		return Message{}, false
	}
	return messageFromResult(r, conversationID), true
}

// UserFromJSON extracts the user record from an auth response.
func UserFromJSON(data []byte) (*User, bool) {
	r, ok := objectEnvelope(data, "user")
	if !ok {
		return nil, false
	}
	return &User{
		ID:    first(r, "id", "_id", "user_id", "userId").String(),
		Email: first(r, "email").String(),
		Name:  first(r, "name", "display_name", "displayName").String(),
	}, true
}

func conversationFromResult(r gjson.Result) Conversation {
	c := Conversation{
		ID:           first(r, "id", "_id", "conversation_id").String(),
		Title:        strings.TrimSpace(first(r, "title").String()),
		FirstMessage: first(r, "first_message", "firstMessage").String(),
		LastMessage:  first(r, "last_message", "lastMessage").String(),
		MessageCount: nonNegative(first(r, "message_count", "messageCount").Int()),
		Duration:     nonNegative(first(r, "duration").Int()),
		CreatedAt:    parseTime(first(r, "created_at", "createdAt")),
		UpdatedAt:    parseTime(first(r, "updated_at", "updatedAt")),
		UserID:       first(r, "user_id", "userId").String(),
	}
	if c.Title == "" {
		c.Title = DerivedTitle(c.FirstMessage)
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return c
}

func messageFromResult(r gjson.Result, conversationID string) Message {
	m := Message{
		ID:             first(r, "id", "_id", "message_id").String(),
		ConversationID: first(r, "conversation_id", "conversationId").String(),
		Content:        first(r, "content", "text").String(),
		Role:           normalizeRole(first(r, "role", "sender").String()),
		CreatedAt:      parseTime(first(r, "created_at", "createdAt", "timestamp")),
	}
	if m.ConversationID == "" {
		m.ConversationID = conversationID
	}
	return m
}

// normalizeRole maps backend role spellings onto the closed Role set.
// Only user-side spellings map to RoleUser; everything else is the coach.
func normalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human":
		return RoleUser
	default:
		return RoleAssistant
	}
}

func listEnvelope(data []byte, field string) []gjson.Result {
	root := gjson.ParseBytes(data)
	if root.IsArray() {
		return root.Array()
	}
	if root.IsObject() {
		if list := root.Get(field); list.IsArray() {
			return list.Array()
		}
	}
	return nil
}

func objectEnvelope(data []byte, field string) (gjson.Result, bool) {
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	if obj := root.Get(field); obj.IsObject() {
		return obj, true
	}
	if first(root, "id", "_id").Exists() {
		return root, true
	}
	return gjson.Result{}, false
}

// first returns the first of keys present in r.
func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func parseTime(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.Number:
		return fromUnix(r.Int())
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromUnix(n)
		}
	}
	return time.Time{}
}

func fromUnix(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

func nonNegative(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}
