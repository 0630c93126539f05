// Package router forwards composed events to the enabled sinks.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/output"
)

// Sink names used by the pipeline.
const (
	Console = "console"
	File    = "file"
	Network = "network"
)

// Route is a named sink and its initial enable flag.
type Route struct {
	Name    string
	Out     output.Output
	Enabled bool
}

type route struct {
	name    string
	out     output.Output
	enabled bool
}

// Router fans out events to its routes in registration order. Disabled
// routes receive nothing. If one route fails, the remaining routes still
// receive the event.
type Router struct {
	mu     sync.RWMutex
	routes []route
}

// New creates a Router. Routes with a nil output are dropped.
func New(routes ...Route) *Router {
	r := &Router{}
	for _, rt := range routes {
		if rt.Out == nil {
			continue
		}
		r.routes = append(r.routes, route{name: rt.Name, out: rt.Out, enabled: rt.Enabled})
	}
	return r
}

// Route delivers the event to every enabled route. Errors are collected but
// do not prevent delivery to subsequent routes.
func (r *Router) Route(ctx context.Context, event model.LogEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, rt := range r.routes {
		if !rt.enabled {
			continue
		}
		if err := rt.out.Write(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.name, err))
		}
	}
	return errors.Join(errs...)
}

// SetEnabled toggles a route by name. It reports whether the route exists.
func (r *Router) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.routes {
		if r.routes[i].name == name {
			r.routes[i].enabled = enabled
			return true
		}
	}
	return false
}

// Enabled reports whether the named route exists and is enabled.
func (r *Router) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.routes {
		if rt.name == name {
			return rt.enabled
		}
	}
	return false
}

// Names returns the registered route names in order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.routes))
	for i, rt := range r.routes {
		names[i] = rt.name
	}
	return names
}

// Close calls Close on every route, enabled or not, collecting errors.
func (r *Router) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, rt := range r.routes {
		if err := rt.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.name, err))
		}
	}
	return errors.Join(errs...)
}
