// Package routes declares method-qualified routes in nested groups and
// registers them on an http.ServeMux.
package routes

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Group organizes routes under a common prefix. Middleware applies to the group's
// routes and to every child group, outermost first.
type Group struct {
	Prefix     string
	Middleware []Middleware
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		register(mux, "", nil, group)
	}
}

func register(mux *http.ServeMux, parentPrefix string, parentMw []Middleware, group Group) {
	prefix := parentPrefix + group.Prefix
	mw := append(append([]Middleware{}, parentMw...), group.Middleware...)

	for _, route := range group.Routes {
		var h http.Handler = route.Handler
		for i := len(mw) - 1; i >= 0; i-- {
			h = mw[i](h)
		}
		mux.Handle(route.Method+" "+prefix+route.Pattern, h)
	}
	for _, child := range group.Children {
		register(mux, prefix, mw, child)
	}
}
