package web

import "net/http"

// Router wraps http.ServeMux with a fallback handler for unmatched routes,
// so unknown pages render the app's own not-found view.
type Router struct {
	mux      *http.ServeMux
	fallback http.Handler
}

// NewRouter creates a Router with default ServeMux behavior.
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// Mux exposes the underlying ServeMux for route registration.
func (r *Router) Mux() *http.ServeMux {
	return r.mux
}

// SetFallback configures the handler for unmatched routes.
func (r *Router) SetFallback(handler http.Handler) {
	r.fallback = handler
}

// Handle registers a handler for the given pattern.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// ServeHTTP dispatches to the mux, or to the fallback when no pattern matches.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" && r.fallback != nil {
		r.fallback.ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}
