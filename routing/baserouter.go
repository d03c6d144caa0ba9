package routing

import (
	"net/http"
	"slices"
	"sync"

	"github.com/zeptools/gw-impose/responses"
)

type BaseRouter struct {
	*http.ServeMux // Embedded

	mu       sync.Mutex
	patterns []string
}

// Ensure BaseRouter implements Router
var _ Router = (*BaseRouter)(nil)

// NewBaseRouter answers unmatched paths with a JSON 404 instead of the plain text one
func NewBaseRouter() *BaseRouter {
	r := &BaseRouter{ServeMux: http.NewServeMux()}
	r.ServeMux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "no such route")
	})
	return r
}

// Handle registers a route pattern
func (r *BaseRouter) Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	r.ServeMux.Handle(pattern, wrap(handler, handlerWrappers))
	r.mu.Lock()
	r.patterns = append(r.patterns, pattern)
	r.mu.Unlock()
}

func (r *BaseRouter) HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	r.Handle(pattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group lets you register routes under a common Prefix + middleware.
func (r *BaseRouter) Group(prefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	g := &RouteGroup{
		Router:          r,
		Prefix:          prefix,
		HandlerWrappers: handlerWrappers,
	}
	batch(g)
	return g // to do more with this routegroup if any
}

// Patterns lists every registered pattern, sorted
func (r *BaseRouter) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(slices.Values(r.patterns))
}
