package routing

import "net/http"

// Router registers "[METHOD ]path" patterns with optional handler wrappers
type Router interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper)
	HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper)
	Group(prefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup
}

// wrap nests handler so that handlerWrappers[0] runs first
func wrap(handler http.Handler, handlerWrappers []HandlerWrapper) http.Handler {
	for i := len(handlerWrappers) - 1; i >= 0; i-- {
		handler = handlerWrappers[i].Wrap(handler)
	}
	return handler
}
