package module

import (
	"net/http"
	"strings"
)

// Router dispatches requests to mounted modules by their first path segment and
// falls back to a native ServeMux for everything else (health probes, redirects).
type Router struct {
	modules map[string]*Module
	native  *http.ServeMux
}

// NewRouter creates a Router with no modules.
func NewRouter() *Router {
	return &Router{
		modules: make(map[string]*Module),
		native:  http.NewServeMux(),
	}
}

// HandleNative registers a handler on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Redirect registers a fallback route that redirects to target with 302 Found.
func (r *Router) Redirect(pattern, target string) {
	r.native.Handle(pattern, http.RedirectHandler(target, http.StatusFound))
}

// Mount registers modules by prefix. A later module replaces an earlier one with the same prefix.
func (r *Router) Mount(modules ...*Module) {
	for _, m := range modules {
		r.modules[m.prefix] = m
	}
}

// ServeHTTP dispatches to the matching module or the fallback mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := trimTrailingSlash(req)

	if m, ok := r.modules[firstSegment(path)]; ok {
		m.Serve(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	rest, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return "/" + rest
}

func trimTrailingSlash(req *http.Request) string {
	path := req.URL.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
		req.URL.Path = path
	}
	return path
}
