// Package guard decides whether a navigation to a route may proceed.
package guard

import (
	"context"

	"github.com/guilhermegouw/coach/internal/debug"
)

// Well-known route names.
const (
	RouteLogin    = "login"
	RouteRegister = "register"
	RouteHome     = "home"
)

// Route is a navigation target.
type Route struct {
	Name         string
	RequiresAuth bool
}

// Decision is the outcome of Before. An empty Redirect allows the navigation.
type Decision struct {
	Redirect string
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Session is the view of the session the guard needs.
type Session interface {
	IsLoggedIn() bool
	IsAuthenticated() bool
	CheckAuth(ctx context.Context) (bool, error)
}

// Guard evaluates route transitions against a session.
type Guard struct {
	session Session
}

// New creates a guard for session.
func New(session Session) *Guard {
	return &Guard{session: session}
}

// Before decides a transition to to. It blocks on token verification when a
// protected route is requested with an unverified token.
func (g *Guard) Before(ctx context.Context, to Route) Decision {
	if to.RequiresAuth {
		if !g.session.IsLoggedIn() {
			return g.redirect(to, RouteLogin, "no token")
		}
		if !g.session.IsAuthenticated() {
			ok, err := g.session.CheckAuth(ctx)
			if !ok {
				if err != nil {
					debug.Error("guard", err, "verifying token for "+to.Name)
				}
				return g.redirect(to, RouteLogin, "verification failed")
			}
			return Decision{}
		}
	}

	if g.session.IsLoggedIn() && (to.Name == RouteLogin || to.Name == RouteRegister) {
		return g.redirect(to, RouteHome, "already logged in")
	}
	return Decision{}
}

func (g *Guard) redirect(to Route, target, reason string) Decision {
	debug.Log("[guard] %s -> %s (%s)", to.Name, target, reason)
	return Decision{Redirect: target}
}
