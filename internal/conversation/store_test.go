package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guilhermegouw/coach/internal/api"
	"github.com/guilhermegouw/coach/internal/auth"
	"github.com/guilhermegouw/coach/internal/config"
	"github.com/guilhermegouw/coach/internal/events"
	"github.com/guilhermegouw/coach/internal/models"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

// backend is a scripted fake of the conversation API keyed by "METHOD path".
type backend struct {
	t        *testing.T
	routes   map[string]http.HandlerFunc
	calls    atomic.Int32
	mu       sync.Mutex
	lastAuth string
}

func newBackend(t *testing.T) *backend {
	return &backend{t: t, routes: make(map[string]http.HandlerFunc)}
}

func (b *backend) handle(route string, h http.HandlerFunc) *backend {
	b.routes[route] = h
	return b
}

func (b *backend) json(route string, status int, v any) *backend {
	return b.handle(route, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, v)
	})
}

func (b *backend) authorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.calls.Add(1)
	b.mu.Lock()
	b.lastAuth = r.Header.Get("Authorization")
	b.mu.Unlock()

	h, ok := b.routes[r.Method+" "+r.URL.Path]
	if !ok {
		b.t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test handler
}

func newStore(t *testing.T, b *backend, token string, opts ...Option) *Store {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	client := api.New(config.APIConfig{TimeoutMS: 2000}, api.WithBaseURL(srv.URL+"/api"))
	return NewStore(client, staticToken(token), opts...)
}

var threeConversations = map[string]any{
	"conversations": []map[string]any{
		{"id": "c1", "title": "Guitar", "first_message": "How do I practice?", "message_count": 3, "updated_at": "2024-01-15T11:00:00Z"},
		{"id": "c2", "first_message": "Which scales matter most on piano?", "message_count": 12, "updated_at": "2024-01-16T15:30:00Z"},
		{"_id": "c3", "title": "Songwriting", "first_message": "Where to start?", "message_count": 15, "updated_at": "2024-01-13T10:45:00Z"},
	},
}

func threeMessages(id string) map[string]any {
	return map[string]any{
		"messages": []map[string]any{
			{"id": "m1", "conversation_id": id, "content": "hi", "role": "user"},
			{"_id": "m2", "content": "hello", "role": "assistant"},
			{"id": "m3", "text": "how?", "sender": "user"},
		},
	}
}

func loaded(t *testing.T, s *Store) {
	t.Helper()
	if err := s.FetchConversations(context.Background()); err != nil {
		t.Fatalf("FetchConversations() error = %v", err)
	}
}

func TestStore_GatedWithoutToken(t *testing.T) {
	ctx := context.Background()
	ops := map[string]func(t *testing.T, s *Store) error{
		"FetchConversations": func(t *testing.T, s *Store) error { return s.FetchConversations(ctx) },
		"CreateConversation": func(t *testing.T, s *Store) error {
			c, err := s.CreateConversation(ctx, "Hello")
			if c != nil {
				t.Error("CreateConversation() returned a record")
			}
			return err
		},
		"FetchConversationMessages": func(t *testing.T, s *Store) error { return s.FetchConversationMessages(ctx, "c1") },
		"AddMessage": func(t *testing.T, s *Store) error {
			m, err := s.AddMessage(ctx, "c1", "Hi", models.RoleUser)
			if m != nil {
				t.Error("AddMessage() returned a record")
			}
			return err
		},
		"UpdateConversationTitle": func(t *testing.T, s *Store) error { return s.UpdateConversationTitle(ctx, "c1", "x") },
		"DeleteConversation":      func(t *testing.T, s *Store) error { return s.DeleteConversation(ctx, "c1") },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			b := newBackend(t)
			s := newStore(t, b, "")

			if err := op(t, s); !errors.Is(err, auth.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", err)
			}
			if got := s.Error(); got != auth.MsgUnauthenticated {
				t.Errorf("Error() = %q, want %q", got, auth.MsgUnauthenticated)
			}
			if n := b.calls.Load(); n != 0 {
				t.Errorf("made %d network calls, want 0", n)
			}
		})
	}
}

func TestStore_FetchConversations(t *testing.T) {
	t.Run("wrapped list with derived titles", func(t *testing.T) {
		b := newBackend(t).json("GET /api/conversations/user", http.StatusOK, threeConversations)
		s := newStore(t, b, "T1")
		loaded(t, s)

		convs := s.Conversations()
		if len(convs) != 3 {
			t.Fatalf("len = %d, want 3", len(convs))
		}
		if convs[1].Title != "Which scales matter most on piano?" {
			t.Errorf("derived title = %q", convs[1].Title)
		}
		if convs[2].ID != "c3" {
			t.Errorf("alternate id = %q, want c3", convs[2].ID)
		}
		if got := b.authorization(); got != "Bearer T1" {
			t.Errorf("Authorization = %q", got)
		}
		if !s.HasConversations() || s.Loading() {
			t.Error("expected conversations and no loading flag")
		}
	})

	t.Run("bare list", func(t *testing.T) {
		b := newBackend(t).json("GET /api/conversations/user", http.StatusOK, threeConversations["conversations"])
		s := newStore(t, b, "T1")
		loaded(t, s)

		if got := len(s.Conversations()); got != 3 {
			t.Errorf("len = %d, want 3", got)
		}
	})

	t.Run("refetch is idempotent and replaces", func(t *testing.T) {
		b := newBackend(t).json("GET /api/conversations/user", http.StatusOK, threeConversations)
		s := newStore(t, b, "T1")
		loaded(t, s)
		first := s.Conversations()
		loaded(t, s)
		second := s.Conversations()

		if len(first) != len(second) {
			t.Fatalf("len %d then %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("index %d differs: %+v vs %+v", i, first[i], second[i])
			}
		}
	})

	t.Run("failure keeps backend message", func(t *testing.T) {
		b := newBackend(t).json("GET /api/conversations/user", http.StatusInternalServerError, map[string]any{"message": "db down"})
		s := newStore(t, b, "T1")

		var apiErr *api.Error
		if err := s.FetchConversations(context.Background()); !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *api.Error", err)
		}
		if s.Error() != "db down" {
			t.Errorf("Error() = %q", s.Error())
		}
	})

	t.Run("failure without message uses default", func(t *testing.T) {
		b := newBackend(t).json("GET /api/conversations/user", http.StatusInternalServerError, map[string]any{})
		s := newStore(t, b, "T1")

		_ = s.FetchConversations(context.Background()) //nolint:errcheck // asserted via Error()
		if s.Error() != MsgFetchFailed {
			t.Errorf("Error() = %q, want %q", s.Error(), MsgFetchFailed)
		}
	})
}

func TestStore_Sorted(t *testing.T) {
	b := newBackend(t).json("GET /api/conversations/user", http.StatusOK, threeConversations)
	s := newStore(t, b, "T1")
	loaded(t, s)

	sorted := s.Sorted()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].UpdatedAt.After(sorted[i-1].UpdatedAt) {
			t.Errorf("index %d is newer than index %d", i, i-1)
		}
	}
	if sorted[0].ID != "c2" {
		t.Errorf("newest = %q, want c2", sorted[0].ID)
	}
	if s.Conversations()[0].ID != "c1" {
		t.Error("Sorted() must not reorder the underlying list")
	}
}

func TestStore_CreateConversation(t *testing.T) {
	t.Run("prepends the created record", func(t *testing.T) {
		var body map[string]string
		b := newBackend(t).
			json("GET /api/conversations/user", http.StatusOK, threeConversations).
			handle("POST /api/conversations", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test handler
				writeJSON(w, http.StatusCreated, map[string]any{
					"conversation": map[string]any{"id": "c9", "first_message": "Hello", "message_count": 1},
				})
			})
		s := newStore(t, b, "T1")
		loaded(t, s)

		conv, err := s.CreateConversation(context.Background(), "Hello")
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		if body["first_message"] != "Hello" {
			t.Errorf("posted body = %v", body)
		}
		if conv.ID != "c9" || conv.Title != "Hello" {
			t.Errorf("conversation = %+v", conv)
		}
		if got := s.Conversations(); len(got) != 4 || got[0].ID != "c9" {
			t.Errorf("list head = %+v, want c9 at index 0", got[0])
		}
	})

	t.Run("missing record is a failure", func(t *testing.T) {
		b := newBackend(t).json("POST /api/conversations", http.StatusOK, map[string]any{"status": "ok"})
		s := newStore(t, b, "T1")

		conv, err := s.CreateConversation(context.Background(), "Hello")
		if conv != nil || !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("CreateConversation() = %v, %v", conv, err)
		}
		if s.Error() != MsgCreateFailed || s.HasConversations() {
			t.Errorf("Error() = %q, HasConversations() = %v", s.Error(), s.HasConversations())
		}
	})
}

func TestStore_FetchConversationMessages(t *testing.T) {
	t.Run("loads messages and adopts the listed conversation", func(t *testing.T) {
		b := newBackend(t).
			json("GET /api/conversations/user", http.StatusOK, threeConversations).
			json("GET /api/conversations/c1/messages", http.StatusOK, threeMessages("c1"))
		s := newStore(t, b, "T1")
		loaded(t, s)

		if err := s.FetchConversationMessages(context.Background(), "c1"); err != nil {
			t.Fatalf("FetchConversationMessages() error = %v", err)
		}
		msgs := s.Messages()
		if len(msgs) != 3 {
			t.Fatalf("len = %d, want 3", len(msgs))
		}
		if msgs[1].ID != "m2" || msgs[2].Content != "how?" || msgs[2].Role != models.RoleUser {
			t.Errorf("normalized messages = %+v", msgs)
		}
		for _, m := range msgs {
			if m.ConversationID != "c1" {
				t.Errorf("message %s belongs to %q", m.ID, m.ConversationID)
			}
		}
		if cur := s.Current(); cur == nil || cur.ID != "c1" || cur.Title != "Guitar" {
			t.Errorf("Current() = %+v", cur)
		}
	})

	t.Run("unlisted conversation gets a stub", func(t *testing.T) {
		b := newBackend(t).json("GET /api/conversations/zz/messages", http.StatusOK, threeMessages("zz")["messages"])
		s := newStore(t, b, "T1")

		if err := s.FetchConversationMessages(context.Background(), "zz"); err != nil {
			t.Fatalf("FetchConversationMessages() error = %v", err)
		}
		if cur := s.Current(); cur == nil || cur.ID != "zz" || cur.MessageCount != 3 {
			t.Errorf("Current() = %+v", cur)
		}
	})

	t.Run("switching conversations clears stale messages", func(t *testing.T) {
		b := newBackend(t).
			json("GET /api/conversations/c1/messages", http.StatusOK, threeMessages("c1")).
			json("GET /api/conversations/c2/messages", http.StatusNotFound, map[string]any{"message": "gone"})
		s := newStore(t, b, "T1")

		if err := s.FetchConversationMessages(context.Background(), "c1"); err != nil {
			t.Fatalf("FetchConversationMessages(c1) error = %v", err)
		}
		if err := s.FetchConversationMessages(context.Background(), "c2"); err == nil {
			t.Fatal("FetchConversationMessages(c2) error = nil")
		}
		if got := len(s.Messages()); got != 0 {
			t.Errorf("messages of c1 survived a switch: %d", got)
		}
		if s.Error() != "gone" {
			t.Errorf("Error() = %q", s.Error())
		}
	})

	t.Run("older fetch cannot overwrite newer", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		b := newBackend(t).
			handle("GET /api/conversations/c1/messages", func(w http.ResponseWriter, _ *http.Request) {
				close(entered)
				<-release
				writeJSON(w, http.StatusOK, threeMessages("c1"))
			}).
			json("GET /api/conversations/c2/messages", http.StatusOK, map[string]any{"messages": []any{}})
		s := newStore(t, b, "T1")

		slow := make(chan error)
		go func() { slow <- s.FetchConversationMessages(context.Background(), "c1") }()
		<-entered

		if err := s.FetchConversationMessages(context.Background(), "c2"); err != nil {
			t.Fatalf("FetchConversationMessages(c2) error = %v", err)
		}
		close(release)

		if err := <-slow; !errors.Is(err, ErrStaleFetch) {
			t.Errorf("slow fetch error = %v, want ErrStaleFetch", err)
		}
		if cur := s.Current(); cur == nil || cur.ID != "c2" {
			t.Errorf("Current() = %+v, want c2", cur)
		}
		if got := len(s.Messages()); got != 0 {
			t.Errorf("len(Messages()) = %d, want 0", got)
		}
	})
}

func TestStore_AddMessage(t *testing.T) {
	reply := func(w http.ResponseWriter, r *http.Request) {
		var req models.NewMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck // test handler
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": map[string]any{"id": "m4", "content": req.Content, "role": req.Role},
		})
	}

	t.Run("loaded conversation counts in-memory messages", func(t *testing.T) {
		b := newBackend(t).
			json("GET /api/conversations/user", http.StatusOK, threeConversations).
			json("GET /api/conversations/c1/messages", http.StatusOK, threeMessages("c1")).
			handle("POST /api/conversations/c1/messages", reply)
		s := newStore(t, b, "T1")
		loaded(t, s)
		if err := s.FetchConversationMessages(context.Background(), "c1"); err != nil {
			t.Fatalf("FetchConversationMessages() error = %v", err)
		}

		before := time.Now()
		msg, err := s.AddMessage(context.Background(), "c1", "Hi", models.RoleUser)
		if err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
		if msg.ID != "m4" || msg.ConversationID != "c1" {
			t.Errorf("message = %+v", msg)
		}

		c, _ := s.Conversation("c1")
		if c.MessageCount != 4 || c.LastMessage != "Hi" {
			t.Errorf("summary = count %d, last %q; want 4, Hi", c.MessageCount, c.LastMessage)
		}
		if c.UpdatedAt.Before(before) {
			t.Errorf("UpdatedAt = %v, want >= %v", c.UpdatedAt, before)
		}
		if got := len(s.Messages()); got != 4 {
			t.Errorf("len(Messages()) = %d, want 4", got)
		}
		if cur := s.Current(); cur.MessageCount != 4 || cur.LastMessage != "Hi" {
			t.Errorf("Current() = %+v", cur)
		}
	})

	t.Run("unloaded conversation increments the summary", func(t *testing.T) {
		b := newBackend(t).
			json("GET /api/conversations/user", http.StatusOK, threeConversations).
			handle("POST /api/conversations/c1/messages", reply)
		s := newStore(t, b, "T1")
		loaded(t, s)

		if _, err := s.AddMessage(context.Background(), "c1", "Hi", models.RoleUser); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
		c, _ := s.Conversation("c1")
		if c.MessageCount != 4 || c.LastMessage != "Hi" {
			t.Errorf("summary = count %d, last %q; want 4, Hi", c.MessageCount, c.LastMessage)
		}
		if got := len(s.Messages()); got != 0 {
			t.Errorf("messages of another conversation changed: %d", got)
		}
	})

	t.Run("invalid role is rejected without a call", func(t *testing.T) {
		b := newBackend(t)
		s := newStore(t, b, "T1")

		if _, err := s.AddMessage(context.Background(), "c1", "Hi", models.Role("bot")); err == nil {
			t.Error("AddMessage() error = nil, want invalid role")
		}
		if b.calls.Load() != 0 {
			t.Errorf("made %d calls, want 0", b.calls.Load())
		}
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		s := NewStore(api.New(config.APIConfig{TimeoutMS: 1000}, api.WithBaseURL(srv.URL)), staticToken("T1"))

		msg, err := s.AddMessage(context.Background(), "c1", "Hi", models.RoleUser)
		if msg != nil || !errors.Is(err, api.ErrNetwork) {
			t.Errorf("AddMessage() = %v, %v", msg, err)
		}
		if s.Error() != auth.MsgNetwork {
			t.Errorf("Error() = %q, want %q", s.Error(), auth.MsgNetwork)
		}
	})
}

func TestStore_UpdateConversationTitle(t *testing.T) {
	var body map[string]string
	b := newBackend(t).
		json("GET /api/conversations/user", http.StatusOK, threeConversations).
		json("GET /api/conversations/c1/messages", http.StatusOK, threeMessages("c1")).
		handle("PUT /api/conversations/c1", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test handler
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		}).
		json("PUT /api/conversations/c2", http.StatusForbidden, map[string]any{"message": "not yours"})
	s := newStore(t, b, "T1")
	loaded(t, s)
	if err := s.FetchConversationMessages(context.Background(), "c1"); err != nil {
		t.Fatalf("FetchConversationMessages() error = %v", err)
	}

	if err := s.UpdateConversationTitle(context.Background(), "c1", "Practice plan"); err != nil {
		t.Fatalf("UpdateConversationTitle() error = %v", err)
	}
	if body["title"] != "Practice plan" {
		t.Errorf("posted body = %v", body)
	}
	c, _ := s.Conversation("c1")
	if c.Title != "Practice plan" || s.Current().Title != "Practice plan" {
		t.Errorf("summary %q, current %q", c.Title, s.Current().Title)
	}

	if err := s.UpdateConversationTitle(context.Background(), "c2", "Mine"); err == nil {
		t.Fatal("UpdateConversationTitle(c2) error = nil")
	}
	if c2, _ := s.Conversation("c2"); c2.Title == "Mine" {
		t.Error("failed rename must not patch the summary")
	}
	if s.Error() != "not yours" {
		t.Errorf("Error() = %q", s.Error())
	}
}

func TestStore_DeleteConversation(t *testing.T) {
	setup := func(t *testing.T) *Store {
		t.Helper()
		b := newBackend(t).
			json("GET /api/conversations/user", http.StatusOK, threeConversations).
			json("GET /api/conversations/c1/messages", http.StatusOK, threeMessages("c1")).
			json("DELETE /api/conversations/c1", http.StatusOK, map[string]any{}).
			json("DELETE /api/conversations/c2", http.StatusOK, map[string]any{})
		s := newStore(t, b, "T1")
		loaded(t, s)
		if err := s.FetchConversationMessages(context.Background(), "c1"); err != nil {
			t.Fatalf("FetchConversationMessages() error = %v", err)
		}
		return s
	}

	t.Run("active conversation clears current and messages", func(t *testing.T) {
		s := setup(t)
		if err := s.DeleteConversation(context.Background(), "c1"); err != nil {
			t.Fatalf("DeleteConversation() error = %v", err)
		}
		if s.Current() != nil || len(s.Messages()) != 0 {
			t.Error("deleting the active conversation must clear current and messages")
		}
		if _, ok := s.Conversation("c1"); ok {
			t.Error("c1 still listed")
		}
	})

	t.Run("other conversation leaves current untouched", func(t *testing.T) {
		s := setup(t)
		if err := s.DeleteConversation(context.Background(), "c2"); err != nil {
			t.Fatalf("DeleteConversation() error = %v", err)
		}
		if cur := s.Current(); cur == nil || cur.ID != "c1" || len(s.Messages()) != 3 {
			t.Errorf("current = %+v, messages = %d", cur, len(s.Messages()))
		}
		if got := len(s.Conversations()); got != 2 {
			t.Errorf("len = %d, want 2", got)
		}
	})
}

func TestStore_ClearCurrentConversation(t *testing.T) {
	b := newBackend(t).json("GET /api/conversations/c1/messages", http.StatusOK, threeMessages("c1"))
	s := newStore(t, b, "T1")
	if err := s.FetchConversationMessages(context.Background(), "c1"); err != nil {
		t.Fatalf("FetchConversationMessages() error = %v", err)
	}
	calls := b.calls.Load()

	s.ClearCurrentConversation()
	if s.Current() != nil || len(s.Messages()) != 0 {
		t.Error("ClearCurrentConversation() left state behind")
	}
	if b.calls.Load() != calls {
		t.Error("ClearCurrentConversation() must not call the backend")
	}
}

func TestStore_Events(t *testing.T) {
	broker := pubsub.NewBroker[events.ConversationEvent]("conversation")
	defer broker.Shutdown()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := broker.Subscribe(ctx)

	b := newBackend(t).
		json("GET /api/conversations/user", http.StatusOK, threeConversations).
		json("DELETE /api/conversations/c3", http.StatusOK, map[string]any{})
	s := newStore(t, b, "T1", WithBroker(broker))
	loaded(t, s)
	if err := s.DeleteConversation(ctx, "c3"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}

	want := []events.ConversationEventType{events.ConversationEventListed, events.ConversationEventDeleted}
	for _, w := range want {
		select {
		case e := <-sub:
			if e.Payload.Type != w {
				t.Errorf("event = %q, want %q", e.Payload.Type, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", w)
		}
	}
}
