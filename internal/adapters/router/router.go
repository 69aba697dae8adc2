// Package router is the in-process route table of the app.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/scit/internal/domain/route"
	"github.com/okian/scit/pkg/logger"
	"github.com/okian/scit/pkg/metrics"
)

// Router implements route.Navigator over a fixed table.
type Router struct {
	mu        sync.RWMutex
	routes    map[route.Name]struct{}
	redirects map[route.Name]route.Name
	current   route.Name
	history   []route.Name
	logger    logger.Logger
}

// New creates a router on the landing screen.
func New(opts ...Option) *Router {
	r := &Router{
		routes: map[route.Name]struct{}{
			route.Home:          {},
			route.Introduction:  {},
			route.Scanner:       {},
			route.ProfileReview: {},
		},
		redirects: map[route.Name]route.Name{
			route.Root: route.Introduction,
		},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current = r.resolve(route.Root)
	r.history = []route.Name{r.current}
	return r
}

func (r *Router) resolve(to route.Name) route.Name {
	if target, ok := r.redirects[to]; ok {
		return target
	}
	return to
}

// Navigate moves to the screen, following redirects.
func (r *Router) Navigate(ctx context.Context, to route.Name) error {
	r.mu.Lock()
	target := r.resolve(to)
	if _, ok := r.routes[target]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownRoute, to)
	}
	from := r.current
	r.current = target
	r.history = append(r.history, target)
	r.mu.Unlock()

	metrics.RecordNavigation(string(target))
	r.logger.Info(ctx, "navigated", logger.String("from", string(from)), logger.String("to", string(target)))
	return nil
}

// Resolve returns the screen a navigation to name would land on.
func (r *Router) Resolve(name route.Name) (route.Name, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	target := r.resolve(name)
	if _, ok := r.routes[target]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	return target, nil
}

// Current returns the active screen.
func (r *Router) Current() route.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// History returns every screen visited, oldest first.
func (r *Router) History() []route.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]route.Name(nil), r.history...)
}
