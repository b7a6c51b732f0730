package pubsub

import (
	"fmt"
	"strings"

	"github.com/guilhermegouw/coach/internal/events"
)

// Hub holds the brokers for every store.
type Hub struct {
	Auth         *Broker[events.AuthEvent]
	Conversation *Broker[events.ConversationEvent]

	done chan struct{}
}

// NewHub creates a Hub with all brokers initialized.
func NewHub() *Hub {
	return &Hub{
		Auth:         NewBroker[events.AuthEvent]("auth"),
		Conversation: NewBroker[events.ConversationEvent]("conversation"),
		done:         make(chan struct{}),
	}
}

// Shutdown shuts down all brokers. It is safe to call more than once.
func (h *Hub) Shutdown() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}
	h.Auth.Shutdown()
	h.Conversation.Shutdown()
}

// Done returns a channel that's closed when the hub is shut down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// AllMetrics returns metrics for all brokers.
func (h *Hub) AllMetrics() []BrokerMetrics {
	return []BrokerMetrics{
		h.Auth.Metrics(),
		h.Conversation.Metrics(),
	}
}

// DebugString returns one line of counters per broker.
func (h *Hub) DebugString() string {
	var sb strings.Builder
	for _, m := range h.AllMetrics() {
		fmt.Fprintf(&sb, "%s: subs=%d published=%d dropped=%d\n",
			m.Name, m.SubscriberCount, m.PublishCount, m.DropCount)
	}
	return sb.String()
}
