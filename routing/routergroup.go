package routing

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

type RouteGroup struct {
	Router          // [Embedded Interface]
	Prefix          string
	HandlerWrappers []HandlerWrapper // Group Handler Wrappers
}

// Ensure RouteGroup implements Router
var _ Router = (*RouteGroup)(nil)

// joinPattern turns "<method> <subpath>" into "<method> <prefix><subpath>"
func joinPattern(prefix, subpattern string) (string, error) {
	full := prefix + subpattern
	if method, subpath, ok := strings.Cut(subpattern, " "); ok {
		full = method + " " + prefix + subpath
	}
	if strings.Contains(full, "//") {
		return "", fmt.Errorf("route pattern %q has an empty path segment", full)
	}
	return full, nil
}

// Handle registers a route pattern.
// Group wrappers run before the route's own, outermost first.
func (g *RouteGroup) Handle(subpattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	fullPattern, err := joinPattern(g.Prefix, subpattern)
	if err != nil {
		panic(err) // same as http.ServeMux on a bad pattern
	}
	g.Router.Handle(fullPattern, wrap(wrap(handler, handlerWrappers), g.HandlerWrappers))
}

func (g *RouteGroup) HandleFunc(subpattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	g.Handle(subpattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group on *RouteGroup makes a Subgroup
//
//	router.Group("/v1/", func(v1 *RouteGroup) {
//	  v1.Group("jobs/", func(jobs *RouteGroup) {
//	    jobs.HandleFunc("GET {id}", getJob) // "GET /v1/jobs/{id}"
//	  })
//	})
func (g *RouteGroup) Group(subPrefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	subg := &RouteGroup{
		Router:          g.Router,
		Prefix:          g.Prefix + subPrefix,
		HandlerWrappers: slices.Concat(g.HandlerWrappers, handlerWrappers),
	}
	batch(subg)
	return subg
}
