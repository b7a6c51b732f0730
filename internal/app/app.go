// Package app builds the explicit session context every command runs against.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/guilhermegouw/coach/internal/api"
	"github.com/guilhermegouw/coach/internal/auth"
	"github.com/guilhermegouw/coach/internal/bridge"
	"github.com/guilhermegouw/coach/internal/config"
	"github.com/guilhermegouw/coach/internal/conversation"
	"github.com/guilhermegouw/coach/internal/db"
	"github.com/guilhermegouw/coach/internal/debug"
	"github.com/guilhermegouw/coach/internal/guard"
	"github.com/guilhermegouw/coach/internal/kv"
	"github.com/guilhermegouw/coach/internal/pubsub"
)

// App owns one instance of each store for the lifetime of a command.
type App struct {
	Config        *config.Config
	Hub           *pubsub.Hub
	API           *api.Client
	Session       *auth.Session
	Conversations *conversation.Store
	Guard         *guard.Guard

	db     *db.DB
	bridge *bridge.Bridge
}

type options struct {
	store   kv.Store
	apiOpts []api.Option
	sender  bridge.Sender
}

// Option configures New.
type Option func(*options)

// WithStore uses store for persisted slots instead of the database.
func WithStore(store kv.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAPIOptions passes options through to the API client.
func WithAPIOptions(opts ...api.Option) Option {
	return func(o *options) {
		o.apiOpts = append(o.apiOpts, opts...)
	}
}

// WithEventSender forwards every store event to sender.
func WithEventSender(sender bridge.Sender) Option {
	return func(o *options) {
		o.sender = sender
	}
}

// New wires the stores for cfg. Without WithStore, persisted slots live in
// the database under cfg.DataDir().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config: cfg,
		Hub:    pubsub.NewHub(),
	}

	store := o.store
	if store == nil {
		database, err := db.Open(databasePath(cfg))
		if err != nil {
			a.Hub.Shutdown()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = database
		store = kv.NewSQLiteStore(database)
	}

	if o.sender != nil {
		a.bridge = bridge.New(a.Hub, o.sender)
		a.bridge.Start(ctx)
	}

	a.API = api.New(cfg.API, o.apiOpts...)

	session, err := auth.NewSession(ctx, a.API, store, cfg.Auth, auth.WithBroker(a.Hub.Auth))
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	a.Session = session
	a.Conversations = conversation.NewStore(a.API, session, conversation.WithBroker(a.Hub.Conversation))
	a.Guard = guard.New(session)

	debug.Log("[app] %s %s against %s", cfg.App.Name, cfg.App.Version, a.API.BaseURL())
	return a, nil
}

func databasePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir(), db.FileName)
}

// StoragePath returns the database file holding the persisted slots, or ""
// when WithStore supplied the store.
func (a *App) StoragePath() string {
	if a.db == nil {
		return ""
	}
	return a.db.Path()
}

// Close stops event forwarding, shuts the hub down and closes the database.
func (a *App) Close() error {
	debug.Log("[app] hub at close:\n%s", a.Hub.DebugString())
	if a.bridge != nil {
		a.bridge.Stop()
	}
	a.Hub.Shutdown()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Navigate runs the guard for to.
func (a *App) Navigate(ctx context.Context, to guard.Route) guard.Decision {
	return a.Guard.Before(ctx, to)
}
