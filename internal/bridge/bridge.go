package bridge

import (
	"context"
	"sync"

	"github.com/guilhermegouw/coach/internal/debug"
	"github.com/guilhermegouw/coach/internal/events"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

// Sender receives forwarded messages. It is called from the bridge's
// goroutines and must be safe for concurrent use.
type Sender interface {
	Send(msg any)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg any)

// Send calls f(msg).
func (f SenderFunc) Send(msg any) { f(msg) }

// DebugSender writes every message to the debug log.
var DebugSender = SenderFunc(func(msg any) {
	debug.Event(Describe(msg))
})

// Bridge subscribes to all Hub brokers and forwards events to a Sender.
type Bridge struct { //nolint:govet // fieldalignment: preserving logical field order
	hub    *pubsub.Hub
	sender Sender

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	// Only forward conversation events for this conversation.
	conversationFilter string
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithConversationFilter only forwards conversation events for id.
func WithConversationFilter(id string) Option {
	return func(b *Bridge) {
		b.conversationFilter = id
	}
}

// New creates a bridge from hub to sender.
func New(hub *pubsub.Hub, sender Sender, opts ...Option) *Bridge {
	b := &Bridge{
		hub:    hub,
		sender: sender,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start begins forwarding. Call Stop to shut down.
func (b *Bridge) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	// Subscribe before returning so no event published after Start is missed.
	authEvents := b.hub.Auth.Subscribe(ctx)
	convEvents := b.hub.Conversation.Subscribe(ctx)

	b.wg.Add(2)
	go forward(&b.wg, authEvents, func(e pubsub.Event[events.AuthEvent]) {
		b.sender.Send(AuthEventMsg{Event: e})
	})
	go forward(&b.wg, convEvents, func(e pubsub.Event[events.ConversationEvent]) {
		if filter := b.filter(); filter != "" && e.Payload.ConversationID != filter {
			return
		}
		b.sender.Send(ConversationEventMsg{Event: e})
	})

	debug.Event("bridge", "start", "event bridge started")
}

// Stop shuts the bridge down and waits for in-flight sends. It is safe to
// call more than once, and before Start.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	b.wg.Wait()
	debug.Event("bridge", "stop", "event bridge stopped")
}

// SetConversationFilter updates the conversation filter at runtime.
func (b *Bridge) SetConversationFilter(id string) {
	b.mu.Lock()
	b.conversationFilter = id
	b.mu.Unlock()
}

// ClearConversationFilter removes the conversation filter.
func (b *Bridge) ClearConversationFilter() {
	b.SetConversationFilter("")
}

func (b *Bridge) filter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversationFilter
}

// forward drains ch until it is closed.
func forward[T any](wg *sync.WaitGroup, ch <-chan pubsub.Event[T], fn func(pubsub.Event[T])) {
	defer wg.Done()
	for e := range ch {
		fn(e)
	}
}
