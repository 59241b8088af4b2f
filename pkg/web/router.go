package web

import (
	"sort"
	"strings"
	"sync"

	"github.com/valyala/fasthttp"
)

// Router dispatches requests to handlers by method and path. Path segments
// starting with ':' are parameters; a literal segment beats a parameter, so
// /todos/trash and /todos/:id can coexist.
//
// Groups share the route table of their parent and add a path prefix and
// their own middleware. Group middleware must be added before routes are
// registered on the group.
type Router struct {
	table      *routeTable
	prefix     string
	middleware []FastMiddleware
	root       bool
}

type routeTable struct {
	mu           sync.RWMutex
	routes       []*fastRoute
	global       []FastMiddleware
	errorHandler ErrorHandler
}

type fastRoute struct {
	method   string
	pattern  string
	segments []string
	params   int
	handler  FastRequestHandler
}

// NewRouter creates an empty router whose errors are written by WriteError
func NewRouter() *Router {
	return &Router{
		table: &routeTable{
			errorHandler: DefaultErrorHandler(nil),
		},
		root: true,
	}
}

// SetErrorHandler replaces the handler used for errors returned by routes
func (r *Router) SetErrorHandler(h ErrorHandler) {
	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	r.table.errorHandler = h
}

// Use adds middleware. On the root router it wraps every request, including
// unmatched ones; on a group it wraps the group's routes.
func (r *Router) Use(middleware ...FastMiddleware) {
	if r.root {
		r.table.mu.Lock()
		r.table.global = append(r.table.global, middleware...)
		r.table.mu.Unlock()
		return
	}
	r.middleware = append(r.middleware, middleware...)
}

// Group returns a router for routes under prefix
func (r *Router) Group(prefix string, middleware ...FastMiddleware) *Router {
	mw := make([]FastMiddleware, 0, len(r.middleware)+len(middleware))
	mw = append(mw, r.middleware...)
	mw = append(mw, middleware...)
	return &Router{
		table:      r.table,
		prefix:     joinPath(r.prefix, prefix),
		middleware: mw,
	}
}

func (r *Router) GETFast(path string, handler FastRequestHandler) {
	r.RouteFast(fasthttp.MethodGet, path, handler)
}

func (r *Router) POSTFast(path string, handler FastRequestHandler) {
	r.RouteFast(fasthttp.MethodPost, path, handler)
}

func (r *Router) PUTFast(path string, handler FastRequestHandler) {
	r.RouteFast(fasthttp.MethodPut, path, handler)
}

func (r *Router) DELETEFast(path string, handler FastRequestHandler) {
	r.RouteFast(fasthttp.MethodDelete, path, handler)
}

func (r *Router) PATCHFast(path string, handler FastRequestHandler) {
	r.RouteFast(fasthttp.MethodPatch, path, handler)
}

// RouteFast registers a handler wrapped in the group middleware
func (r *Router) RouteFast(method, path string, handler FastRequestHandler) {
	pattern := joinPath(r.prefix, path)
	segments := splitPath(pattern)
	params := 0
	for _, s := range segments {
		if strings.HasPrefix(s, ":") {
			params++
		}
	}

	r.table.mu.Lock()
	defer r.table.mu.Unlock()
	r.table.routes = append(r.table.routes, &fastRoute{
		method:   method,
		pattern:  pattern,
		segments: segments,
		params:   params,
		handler:  Chain(handler, r.middleware...),
	})
	sort.SliceStable(r.table.routes, func(i, j int) bool {
		return r.table.routes[i].params < r.table.routes[j].params
	})
}

// Handler returns the fasthttp entry point: global middleware around dispatch
func (r *Router) Handler() fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		r.ServeFastHTTP(NewFastRequestContext(rc))
	}
}

// ServeFastHTTP runs the request through the global middleware and the router
func (r *Router) ServeFastHTTP(ctx *FastRequestContext) {
	r.table.mu.RLock()
	global := r.table.global
	errorHandler := r.table.errorHandler
	r.table.mu.RUnlock()

	if err := Chain(r.table.dispatch, global...)(ctx); err != nil {
		errorHandler(ctx, err)
	}
}

func (t *routeTable) dispatch(ctx *FastRequestContext) error {
	t.mu.RLock()
	route, allowed := t.match(ctx.Method(), splitPath(ctx.Path()), ctx.Params)
	errorHandler := t.errorHandler
	t.mu.RUnlock()

	if route == nil {
		if len(allowed) > 0 {
			ctx.RequestCtx.Response.Header.Set("Allow", strings.Join(allowed, ", "))
			errorHandler(ctx, NewHTTPError(fasthttp.StatusMethodNotAllowed, "Method Not Allowed"))
			return nil
		}
		errorHandler(ctx, NewHTTPError(fasthttp.StatusNotFound, "Not Found"))
		return nil
	}

	ctx.route = route.pattern
	if err := route.handler(ctx); err != nil {
		errorHandler(ctx, err)
	}
	return nil
}

// match finds the most literal route for the path. When the path exists only
// under other methods, their names are returned instead.
func (t *routeTable) match(method string, segments []string, params map[string]string) (*fastRoute, []string) {
	var allowed []string
	for _, route := range t.routes {
		if !matchSegments(route.segments, segments) {
			continue
		}
		if route.method != method {
			allowed = appendUnique(allowed, route.method)
			continue
		}
		for i, s := range route.segments {
			if strings.HasPrefix(s, ":") {
				params[s[1:]] = segments[i]
			}
		}
		return route, nil
	}
	return nil, allowed
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, part := range pattern {
		if strings.HasPrefix(part, ":") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if part != path[i] {
			return false
		}
	}
	return true
}

// splitPath ignores a trailing slash, so /todos/ and /todos are the same route
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func joinPath(prefix, path string) string {
	joined := strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(path, "/")
	if joined != "/" {
		joined = strings.TrimRight(joined, "/")
	}
	return joined
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
