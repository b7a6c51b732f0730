// Package conversation holds the signed-in user's conversation summaries,
// the active conversation and its messages.
//
// Every operation needs a session token. Without one it records
// "User not authenticated", returns auth.ErrUnauthenticated and makes no
// network call.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/guilhermegouw/coach/internal/api"
	"github.com/guilhermegouw/coach/internal/auth"
	"github.com/guilhermegouw/coach/internal/debug"
	"github.com/guilhermegouw/coach/internal/events"
	"github.com/guilhermegouw/coach/internal/models"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

// Default error messages, used when the backend sends none.
const (
	MsgFetchFailed    = "Failed to load conversations"
	MsgCreateFailed   = "Failed to create conversation"
	MsgMessagesFailed = "Failed to load messages"
	MsgSendFailed     = "Failed to send message"
	MsgRenameFailed   = "Failed to update title"
	MsgDeleteFailed   = "Failed to delete conversation"
)

// ErrMalformedResponse is returned when a successful response lacks the expected record.
var ErrMalformedResponse = errors.New("response did not include the expected record")

// ErrStaleFetch is returned by a message fetch overtaken by a newer one.
var ErrStaleFetch = errors.New("superseded by a newer message fetch")

// TokenSource provides the bearer token for each call.
type TokenSource interface {
	Token() string
}

// Store is the conversation state container. It is safe for concurrent use.
type Store struct { //nolint:govet // fieldalignment: preserving logical field order
	client *api.Client
	tokens TokenSource
	broker *pubsub.Broker[events.ConversationEvent]

	mu            sync.RWMutex
	conversations []models.Conversation
	current       *models.Conversation
	messages      []models.Message
	// messagesFor names the conversation messages belongs to.
	messagesFor string
	// fetchSeq numbers message fetches; only the latest may install results.
	fetchSeq uint64
	loading  int
	err      string
}

// Option configures a Store.
type Option func(*Store)

// WithBroker publishes store events on broker.
func WithBroker(broker *pubsub.Broker[events.ConversationEvent]) Option {
	return func(s *Store) {
		s.broker = broker
	}
}

// NewStore creates an empty store.
func NewStore(client *api.Client, tokens TokenSource, opts ...Option) *Store {
	s := &Store{
		client: client,
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversations returns a copy of the summary list in insertion order.
func (s *Store) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conversations)
}

// Sorted returns the summaries ordered by UpdatedAt, newest first.
func (s *Store) Sorted() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SortByRecency(s.conversations)
}

// HasConversations reports whether the summary list is non-empty.
func (s *Store) HasConversations() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations) > 0
}

// Conversation returns the summary with id.
func (s *Store) Conversation(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := models.IndexConversation(s.conversations, id); i >= 0 {
		return s.conversations[i], true
	}
	return models.Conversation{}, false
}

// Current returns a copy of the active conversation, or nil.
func (s *Store) Current() *models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Messages returns a copy of the active conversation's messages.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Loading reports whether a list, create or message fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Error returns the last human-readable error, or "".
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearError clears the error field only.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// FetchConversations replaces the summary list with the backend's.
func (s *Store) FetchConversations(ctx context.Context) error {
	token, err := s.authorize()
	if err != nil {
		return err
	}
	s.begin()
	defer s.end()

	resp, err := s.client.Get(ctx, "/conversations/user", token)
	if err != nil {
		return s.fail(err, MsgFetchFailed)
	}
	if err := resp.Err(MsgFetchFailed); err != nil {
		return s.fail(err, MsgFetchFailed)
	}

	convs := models.ConversationsFromJSON(resp.Data)

	s.mu.Lock()
	s.conversations = convs
	s.mu.Unlock()

	debug.Log("[conversation] loaded %d conversations", len(convs))
	s.publish(pubsub.EventUpdated, events.NewConversationsListedEvent(len(convs)))
	return nil
}

// CreateConversation starts a conversation seeded with firstMessage and
// places it at the front of the summary list.
func (s *Store) CreateConversation(ctx context.Context, firstMessage string) (*models.Conversation, error) {
	token, err := s.authorize()
	if err != nil {
		return nil, err
	}
	s.begin()
	defer s.end()

	body := map[string]string{"first_message": firstMessage}
	resp, err := s.client.Post(ctx, "/conversations", body, token)
	if err != nil {
		return nil, s.fail(err, MsgCreateFailed)
	}
	if err := resp.Err(MsgCreateFailed); err != nil {
		return nil, s.fail(err, MsgCreateFailed)
	}

	conv, ok := models.ConversationFromJSON(resp.Data)
	if !ok {
		return nil, s.fail(ErrMalformedResponse, MsgCreateFailed)
	}

	s.mu.Lock()
	s.conversations = slices.Insert(s.conversations, 0, conv)
	s.mu.Unlock()

	debug.Log("[conversation] created %s", conv.ID)
	s.publish(pubsub.EventCreated, events.NewConversationCreatedEvent(conv.ID, conv.Title))
	return &conv, nil
}

// FetchConversationMessages loads the messages of conversation id and makes
// it the active conversation. Messages of a different conversation are
// cleared as soon as the fetch starts. When overtaken by a later fetch, the
// result is dropped and ErrStaleFetch is returned.
func (s *Store) FetchConversationMessages(ctx context.Context, id string) error {
	token, err := s.authorize()
	if err != nil {
		return err
	}
	s.begin()
	defer s.end()

	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	if s.messagesFor != id {
		s.messages = nil
		s.messagesFor = ""
	}
	s.mu.Unlock()

	resp, err := s.client.Get(ctx, messagesPath(id), token)
	if err != nil {
		return s.fail(err, MsgMessagesFailed)
	}
	if err := resp.Err(MsgMessagesFailed); err != nil {
		return s.fail(err, MsgMessagesFailed)
	}

	msgs := models.MessagesFromJSON(resp.Data, id)

	s.mu.Lock()
	if seq != s.fetchSeq {
		s.mu.Unlock()
		debug.Log("[conversation] dropping stale messages for %s", id)
		return ErrStaleFetch
	}
	s.messages = msgs
	s.messagesFor = id
	if i := models.IndexConversation(s.conversations, id); i >= 0 {
		c := s.conversations[i]
		s.current = &c
	} else {
		s.current = &models.Conversation{ID: id, MessageCount: len(msgs)}
	}
	s.mu.Unlock()

	debug.Log("[conversation] loaded %d messages for %s", len(msgs), id)
	s.publish(pubsub.EventUpdated, events.NewMessagesLoadedEvent(id, len(msgs)))
	return nil
}

// AddMessage posts a message to conversation id. The message is appended to
// the in-memory list when that list belongs to id, and the summary's last
// message, count and update time are patched.
func (s *Store) AddMessage(ctx context.Context, id, content string, role models.Role) (*models.Message, error) {
	token, err := s.authorize()
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, s.fail(err, err.Error())
	}

	body := models.NewMessageRequest{Content: content, Role: role}
	resp, err := s.client.Post(ctx, messagesPath(id), body, token)
	if err != nil {
		return nil, s.fail(err, MsgSendFailed)
	}
	if err := resp.Err(MsgSendFailed); err != nil {
		return nil, s.fail(err, MsgSendFailed)
	}

	now := time.Now()
	msg, ok := models.MessageFromJSON(resp.Data, id)
	if !ok {
		// Some backends only acknowledge; keep what was sent.
		msg = models.Message{ConversationID: id, Content: content, Role: role, CreatedAt: now}
	}

	s.mu.Lock()
	count := -1
	if s.messagesFor == id {
		s.messages = append(s.messages, msg)
		count = len(s.messages)
	}
	if i := models.IndexConversation(s.conversations, id); i >= 0 {
		c := &s.conversations[i]
		if count < 0 {
			count = c.MessageCount + 1
		}
		c.LastMessage = content
		c.MessageCount = count
		c.UpdatedAt = now
	}
	if s.current != nil && s.current.ID == id {
		if count < 0 {
			count = s.current.MessageCount + 1
		}
		s.current.LastMessage = content
		s.current.MessageCount = count
		s.current.UpdatedAt = now
	}
	s.mu.Unlock()

	debug.Log("[conversation] added %s message to %s", role, id)
	s.publish(pubsub.EventCreated, events.NewMessageAddedEvent(id, string(role), content, count))
	return &msg, nil
}

// UpdateConversationTitle renames conversation id, keeping the summary and
// the active copy consistent.
func (s *Store) UpdateConversationTitle(ctx context.Context, id, title string) error {
	token, err := s.authorize()
	if err != nil {
		return err
	}

	resp, err := s.client.Put(ctx, conversationPath(id), map[string]string{"title": title}, token)
	if err != nil {
		return s.fail(err, MsgRenameFailed)
	}
	if err := resp.Err(MsgRenameFailed); err != nil {
		return s.fail(err, MsgRenameFailed)
	}

	s.mu.Lock()
	if i := models.IndexConversation(s.conversations, id); i >= 0 {
		s.conversations[i].Title = title
	}
	if s.current != nil && s.current.ID == id {
		s.current.Title = title
	}
	s.mu.Unlock()

	debug.Log("[conversation] renamed %s", id)
	s.publish(pubsub.EventUpdated, events.NewConversationRenamedEvent(id, title))
	return nil
}

// DeleteConversation removes conversation id. Deleting the active
// conversation also clears it and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	token, err := s.authorize()
	if err != nil {
		return err
	}

	resp, err := s.client.Delete(ctx, conversationPath(id), token)
	if err != nil {
		return s.fail(err, MsgDeleteFailed)
	}
	if err := resp.Err(MsgDeleteFailed); err != nil {
		return s.fail(err, MsgDeleteFailed)
	}

	s.mu.Lock()
	s.conversations = slices.DeleteFunc(s.conversations, func(c models.Conversation) bool {
		return c.ID == id
	})
	if s.current != nil && s.current.ID == id {
		s.clearCurrentLocked()
	}
	s.mu.Unlock()

	debug.Log("[conversation] deleted %s", id)
	s.publish(pubsub.EventDeleted, events.NewConversationDeletedEvent(id))
	return nil
}

// ClearCurrentConversation drops the active conversation and its messages.
func (s *Store) ClearCurrentConversation() {
	s.mu.Lock()
	var id string
	if s.current != nil {
		id = s.current.ID
	}
	s.clearCurrentLocked()
	s.mu.Unlock()

	s.publish(pubsub.EventUpdated, events.NewConversationClearedEvent(id))
}

func (s *Store) clearCurrentLocked() {
	s.current = nil
	s.messages = nil
	s.messagesFor = ""
	// Invalidate any message fetch still in flight.
	s.fetchSeq++
}

// authorize returns the session token or records the unauthenticated error.
func (s *Store) authorize() (string, error) {
	token := s.tokens.Token()
	if token != "" {
		return token, nil
	}
	s.mu.Lock()
	s.err = auth.MsgUnauthenticated
	s.mu.Unlock()
	debug.Log("[conversation] rejected: no session token")
	return "", auth.ErrUnauthenticated
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.err = ""
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

// fail records the user-facing text for err and returns err. Backend
// messages win over fallback.
func (s *Store) fail(err error, fallback string) error {
	msg := fallback
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.Message
	case errors.Is(err, api.ErrNetwork):
		msg = auth.MsgNetwork
	}

	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()

	debug.Error("conversation", err, msg)
	return err
}

func (s *Store) publish(eventType pubsub.EventType, event events.ConversationEvent) {
	if s.broker != nil {
		s.broker.Publish(eventType, event)
	}
}

func conversationPath(id string) string {
	return "/conversations/" + url.PathEscape(id)
}

func messagesPath(id string) string {
	return fmt.Sprintf("/conversations/%s/messages", url.PathEscape(id))
}
