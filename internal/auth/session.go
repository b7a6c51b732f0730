// Package auth owns the signed-in identity and bearer token.
//
// A Session moves between three states derived from its fields:
//
//	Unauthenticated  no token
//	Pending          token held, user not yet verified (e.g. after restart)
//	Authenticated    token and user held
//
// The token is mirrored to a persistent kv slot so it survives restarts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/guilhermegouw/coach/internal/api"
	"github.com/guilhermegouw/coach/internal/config"
	"github.com/guilhermegouw/coach/internal/debug"
	"github.com/guilhermegouw/coach/internal/events"
	"github.com/guilhermegouw/coach/internal/kv"
	"github.com/guilhermegouw/coach/internal/models"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

// Backend endpoints.
const (
	LoginEndpoint    = "/auth"
	RegisterEndpoint = "/register"
	VerifyEndpoint   = "/verify-token"
)

// Human-readable messages exposed through Error().
const (
	MsgLoginFailed     = "Login failed."
	MsgRegisterFailed  = "Registration failed."
	MsgNetwork         = "Network error. Please try again."
	MsgUnauthenticated = "User not authenticated"
)

var (
	// ErrUnauthenticated is returned by operations that need a token when none is held.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrMissingToken is returned when the backend accepts credentials but sends no token.
	ErrMissingToken = errors.New("response did not include a token")
)

// State is the derived session state.
type State int

// Session states.
const (
	StateUnauthenticated State = iota
	StatePending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session holds the current identity. It is safe for concurrent use.
type Session struct { //nolint:govet // fieldalignment: preserving logical field order
	client *api.Client
	store  kv.Store
	keys   config.AuthConfig
	broker *pubsub.Broker[events.AuthEvent]
	verify singleflight.Group

	mu      sync.RWMutex
	user    *models.User
	token   string
	loading int
	err     string
	// epoch changes whenever the held token is replaced or dropped; verification
	// results computed under an older epoch are discarded.
	epoch uint64
}

// Option configures a Session.
type Option func(*Session)

// WithBroker publishes session events on broker.
func WithBroker(broker *pubsub.Broker[events.AuthEvent]) Option {
	return func(s *Session) {
		s.broker = broker
	}
}

// NewSession creates a session, restoring the persisted token if one exists.
func NewSession(ctx context.Context, client *api.Client, store kv.Store, keys config.AuthConfig, opts ...Option) (*Session, error) {
	s := &Session{
		client: client,
		store:  store,
		keys:   keys,
	}
	for _, opt := range opts {
		opt(s)
	}

	token, ok, err := store.Get(ctx, keys.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("reading persisted token: %w", err)
	}
	if ok {
		s.token = token
		debug.Log("[auth] restored persisted token")
	}
	return s, nil
}

// User returns a copy of the verified user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Loading reports whether a login or registration is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Error returns the last human-readable error, or "".
func (s *Session) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// IsLoggedIn reports whether a token is held.
func (s *Session) IsLoggedIn() bool {
	return s.Token() != ""
}

// IsAuthenticated reports whether both a token and a user are held.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// State returns the derived session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.token == "":
		return StateUnauthenticated
	case s.user == nil:
		return StatePending
	default:
		return StateAuthenticated
	}
}

// ClearError clears the error field only.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// Login posts credentials and, on success, adopts and persists the returned
// token. When the backend omits the user, the session holds {Email: email}.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.begin()
	defer s.end()

	resp, err := s.client.Post(ctx, LoginEndpoint, models.Credentials{Email: email, Password: password}, "")
	if err != nil {
		return s.fail(email, err, MsgNetwork)
	}
	if err := resp.Err(MsgLoginFailed); err != nil {
		return s.fail(email, err, ErrorMessage(err))
	}

	user, ok := models.UserFromJSON(resp.Data)
	if !ok {
		user = &models.User{Email: email}
	}
	if err := s.adopt(ctx, resp, user); err != nil {
		return s.fail(email, err, MsgLoginFailed)
	}

	debug.Log("[auth] logged in as %s", user.Email)
	s.publish(pubsub.EventCreated, events.NewLoggedInEvent(user.ID, user.Email))
	return nil
}

// Register validates and posts a sign-up request. A token in the response
// signs the new user in; otherwise the session is left unchanged.
func (s *Session) Register(ctx context.Context, name, email, password string) error {
	s.begin()
	defer s.end()

	reg, err := models.NewRegistration(name, email, password)
	if err != nil {
		return s.fail(email, err, err.Error())
	}

	resp, err := s.client.Post(ctx, RegisterEndpoint, reg, "")
	if err != nil {
		return s.fail(reg.Email, err, MsgNetwork)
	}
	if err := resp.Err(MsgRegisterFailed); err != nil {
		return s.fail(reg.Email, err, ErrorMessage(err))
	}

	user, ok := models.UserFromJSON(resp.Data)
	if !ok {
		user = &models.User{Email: reg.Email, Name: reg.Name}
	}
	if resp.Get("token").String() != "" {
		if err := s.adopt(ctx, resp, user); err != nil {
			return s.fail(reg.Email, err, MsgRegisterFailed)
		}
	}

	debug.Log("[auth] registered %s", user.Email)
	s.publish(pubsub.EventCreated, events.NewRegisteredEvent(user.ID, user.Email))
	return nil
}

// Logout drops the user, token and error and removes the persisted slots.
// It makes no network call and is idempotent. The in-memory session is
// cleared even when removing the persisted slots fails.
func (s *Session) Logout() error {
	s.mu.Lock()
	wasLoggedIn := s.token != "" || s.user != nil
	s.user = nil
	s.token = ""
	s.err = ""
	s.epoch++
	s.mu.Unlock()

	// Logout must not be cancellable mid-way.
	err := s.store.Delete(context.Background(), s.keys.TokenKey, s.keys.RefreshTokenKey)

	if wasLoggedIn {
		debug.Log("[auth] logged out")
		s.publish(pubsub.EventDeleted, events.NewLoggedOutEvent())
	}
	if err != nil {
		return fmt.Errorf("removing persisted token: %w", err)
	}
	return nil
}

// CheckAuth verifies the held token. Without a token it returns false and
// makes no call. Any failure tears the session down through Logout.
// Concurrent calls for the same token share a single request, which runs
// detached from the callers' contexts and is bounded by the client timeout.
// A caller whose ctx ends first returns ctx.Err() and leaves the session alone.
func (s *Session) CheckAuth(ctx context.Context) (bool, error) {
	s.mu.RLock()
	token, epoch := s.token, s.epoch
	s.mu.RUnlock()

	if token == "" {
		return false, nil
	}

	ch := s.verify.DoChan(token, func() (any, error) {
		return s.checkToken(context.WithoutCancel(ctx), token, epoch)
	})
	select {
	case <-ctx.Done():
		debug.Log("[auth] stopped waiting for token verification: %v", ctx.Err())
		return false, ctx.Err()
	case res := <-ch:
		ok, _ := res.Val.(bool) //nolint:errcheck // Val is always a bool
		return ok, res.Err
	}
}

func (s *Session) checkToken(ctx context.Context, token string, epoch uint64) (bool, error) {
	resp, err := s.client.Get(ctx, VerifyEndpoint, token)
	if err == nil {
		err = resp.Err("token verification failed")
	}
	if err != nil {
		debug.Error("auth", err, "verifying token")
		s.publish(pubsub.EventFailed, events.NewVerifyFailedEvent(err))
		if s.currentEpoch() == epoch {
			if logoutErr := s.Logout(); logoutErr != nil {
				debug.Error("auth", logoutErr, "logout after failed verification")
			}
		}
		return false, err
	}

	user, _ := models.UserFromJSON(resp.Data)

	s.mu.Lock()
	if s.epoch != epoch {
		// The session changed while the request was in flight.
		authenticated := s.token != "" && s.user != nil
		s.mu.Unlock()
		debug.Log("[auth] discarding stale verification result")
		return authenticated, nil
	}
	s.user = user
	s.mu.Unlock()

	var userID, email string
	if user != nil {
		userID, email = user.ID, user.Email
	}
	s.publish(pubsub.EventUpdated, events.NewVerifiedEvent(userID, email))
	return true, nil
}

// adopt installs the token and user from a successful response and persists
// the token, plus the refresh token when the backend sends one.
func (s *Session) adopt(ctx context.Context, resp *api.Response, user *models.User) error {
	token := resp.Get("token").String()
	if token == "" {
		return ErrMissingToken
	}
	slots := map[string]string{s.keys.TokenKey: token}
	refresh := resp.Get("refresh_token").String()
	if refresh == "" {
		refresh = resp.Get("refreshToken").String()
	}
	if refresh != "" {
		slots[s.keys.RefreshTokenKey] = refresh
	}
	if err := s.store.Put(ctx, slots); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.epoch++
	s.mu.Unlock()
	return nil
}

func (s *Session) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Session) begin() {
	s.mu.Lock()
	s.loading++
	s.err = ""
	s.mu.Unlock()
}

func (s *Session) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

func (s *Session) fail(email string, err error, msg string) error {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()

	debug.Error("auth", err, msg)
	s.publish(pubsub.EventFailed, events.NewLoginFailedEvent(email, err))
	return err
}

// ErrorMessage maps an operation error to the text shown to the user.
func ErrorMessage(err error) string {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, api.ErrNetwork):
		return MsgNetwork
	default:
		return err.Error()
	}
}

func (s *Session) publish(eventType pubsub.EventType, event events.AuthEvent) {
	if s.broker != nil {
		s.broker.Publish(eventType, event)
	}
}
