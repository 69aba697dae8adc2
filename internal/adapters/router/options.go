package router

import (
	"github.com/okian/scit/internal/domain/route"
	"github.com/okian/scit/pkg/logger"
)

// Option configures a Router.
type Option func(*Router)

func WithLogger(l logger.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRoute adds a screen to the table.
func WithRoute(name route.Name) Option {
	return func(r *Router) { r.routes[name] = struct{}{} }
}

// WithRedirect sends navigations to from on to target.
func WithRedirect(from, target route.Name) Option {
	return func(r *Router) { r.redirects[from] = target }
}
