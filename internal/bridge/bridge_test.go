package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guilhermegouw/coach/internal/events"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

// mockSender captures forwarded messages.
type mockSender struct {
	mu       sync.Mutex
	messages []any
}

func (m *mockSender) Send(msg any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockSender) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.messages))
	copy(out, m.messages)
	return out
}

func waitFor(t *testing.T, sender *mockSender, n int) []any {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if msgs := sender.Messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d messages, got %d", n, len(sender.Messages()))
	return nil
}

func TestBridgeStartStop(t *testing.T) {
	t.Run("start and stop lifecycle", func(t *testing.T) {
		hub := pubsub.NewHub()
		defer hub.Shutdown()

		b := New(hub, &mockSender{})
		b.Start(context.Background())
		b.Stop()
		b.Stop()

		if n := hub.Auth.SubscriberCount(); n != 0 {
			t.Errorf("auth subscribers after Stop = %d, want 0", n)
		}
	})

	t.Run("stop without start is safe", func(t *testing.T) {
		hub := pubsub.NewHub()
		defer hub.Shutdown()

		New(hub, &mockSender{}).Stop()
	})

	t.Run("hub shutdown ends forwarding", func(t *testing.T) {
		hub := pubsub.NewHub()
		b := New(hub, &mockSender{})
		b.Start(context.Background())

		hub.Shutdown()
		b.Stop()
	})
}

func TestBridgeForwarding(t *testing.T) {
	t.Run("forwards auth and conversation events", func(t *testing.T) {
		hub := pubsub.NewHub()
		defer hub.Shutdown()

		sender := &mockSender{}
		b := New(hub, sender)
		b.Start(context.Background())
		defer b.Stop()

		hub.Auth.Publish(pubsub.EventCreated, events.NewLoggedInEvent("1", "a@b.com"))
		hub.Conversation.Publish(pubsub.EventCreated, events.NewConversationCreatedEvent("c1", "Hello"))

		var sawAuth, sawConv bool
		for _, msg := range waitFor(t, sender, 2) {
			switch m := msg.(type) {
			case AuthEventMsg:
				sawAuth = m.Event.Payload.Email == "a@b.com"
			case ConversationEventMsg:
				sawConv = m.Event.Payload.ConversationID == "c1"
			}
		}
		if !sawAuth || !sawConv {
			t.Errorf("sawAuth = %v, sawConv = %v", sawAuth, sawConv)
		}
	})

	t.Run("conversation filter drops other conversations", func(t *testing.T) {
		hub := pubsub.NewHub()
		defer hub.Shutdown()

		sender := &mockSender{}
		b := New(hub, sender, WithConversationFilter("c2"))
		b.Start(context.Background())
		defer b.Stop()

		hub.Conversation.Publish(pubsub.EventDeleted, events.NewConversationDeletedEvent("c1"))
		hub.Conversation.Publish(pubsub.EventDeleted, events.NewConversationDeletedEvent("c2"))

		waitFor(t, sender, 1)
		time.Sleep(20 * time.Millisecond)
		msgs := sender.Messages()
		if len(msgs) != 1 {
			t.Fatalf("got %d messages, want 1", len(msgs))
		}
		if id := msgs[0].(ConversationEventMsg).Event.Payload.ConversationID; id != "c2" {
			t.Errorf("forwarded %q, want c2", id)
		}

		b.ClearConversationFilter()
		hub.Conversation.Publish(pubsub.EventDeleted, events.NewConversationDeletedEvent("c3"))
		waitFor(t, sender, 2)
	})
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name          string
		msg           any
		wantComponent string
		wantType      string
		wantDetail    string
	}{
		{
			name:          "auth failure",
			msg:           AuthEventMsg{Event: pubsub.Event[events.AuthEvent]{Payload: events.NewLoginFailedEvent("a@b.com", errors.New("bad"))}},
			wantComponent: "auth",
			wantType:      "login_failed",
			wantDetail:    "error=bad",
		},
		{
			name:          "message added",
			msg:           ConversationEventMsg{Event: pubsub.Event[events.ConversationEvent]{Payload: events.NewMessageAddedEvent("c1", "user", "Hi", 4)}},
			wantComponent: "conversation",
			wantType:      "message_added",
			wantDetail:    "id=c1 count=4 role=user",
		},
		{
			name:          "unknown",
			msg:           42,
			wantComponent: "bridge",
			wantType:      "unknown",
			wantDetail:    "int",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			component, eventType, details := Describe(tt.msg)
			if component != tt.wantComponent || eventType != tt.wantType {
				t.Errorf("Describe() = %q, %q", component, eventType)
			}
			if !strings.Contains(details, tt.wantDetail) {
				t.Errorf("details = %q, want it to contain %q", details, tt.wantDetail)
			}
		})
	}
}
