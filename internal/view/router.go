// Package view maps session state to the top-level view of the client.
package view

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
)

// State is the router state.
type State int

const (
	StateRestoring State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// View is a top-level view.
type View string

const (
	ViewLoading             View = "loading"
	ViewAuth                View = "auth"
	ViewDashboard           View = "dashboard"
	ViewSubscriptionSuccess View = "subscription-success"
)

// Routes.
const (
	PathRoot                = "/"
	PathSubscriptionSuccess = "/subscription-success"
)

// Route is the result of resolving a path. Path differs from the requested
// path when the router redirected.
type Route struct {
	View View
	Path string
}

// Redirected reports whether the resolved path differs from requested.
func (r Route) Redirected(requested string) bool {
	return r.Path != normalize(requested)
}

// Source publishes session snapshots.
type Source interface {
	Snapshot() model.Session
	Subscribe(fn func(model.Session)) func()
}

// Router derives exactly one view from the session state.
type Router struct {
	logger *logger.Logger

	mu        sync.RWMutex
	state     State
	listeners []func(State)

	unsubscribe func()
}

// NewRouter creates a router in the restoring state fed by src.
func NewRouter(src Source, logger *logger.Logger) *Router {
	r := &Router{
		logger: logger,
		state:  StateRestoring,
	}
	r.unsubscribe = src.Subscribe(r.update)
	r.update(src.Snapshot())
	return r
}

// Close stops following the session.
func (r *Router) Close() {
	r.unsubscribe()
}

// State returns the current state.
func (r *Router) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// OnChange registers fn to be called with every new state.
func (r *Router) OnChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Router) update(snap model.Session) {
	next := stateOf(snap)

	r.mu.Lock()
	prev := r.state
	// restoring is entered only once, at construction
	if prev == next || next == StateRestoring {
		r.mu.Unlock()
		return
	}
	r.state = next
	listeners := append([]func(State){}, r.listeners...)
	r.mu.Unlock()

	r.logger.Debug("Router: state changed",
		"from", prev.String(),
		"to", next.String())

	for _, fn := range listeners {
		fn(next)
	}
}

func stateOf(snap model.Session) State {
	switch {
	case snap.Restoring:
		return StateRestoring
	case snap.Authenticated():
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// Resolve maps path to a view for the current state. Unknown paths and
// guarded paths visited without a session resolve to the root.
func (r *Router) Resolve(path string) Route {
	return resolve(r.State(), path)
}

func resolve(state State, path string) Route {
	path = normalize(path)

	if state == StateRestoring {
		return Route{View: ViewLoading, Path: path}
	}

	if path == PathSubscriptionSuccess && state == StateAuthenticated {
		return Route{View: ViewSubscriptionSuccess, Path: path}
	}

	if state == StateAuthenticated {
		return Route{View: ViewDashboard, Path: PathRoot}
	}
	return Route{View: ViewAuth, Path: PathRoot}
}

// normalize strips the query string and a trailing slash.
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return PathRoot
	}
	return path
}
