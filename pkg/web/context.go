package web

import (
	"context"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/core"
)

// FastRequestHandler handles fasthttp requests
type FastRequestHandler func(ctx *FastRequestContext) error

// FastMiddleware is middleware for fasthttp
type FastMiddleware func(handler FastRequestHandler) FastRequestHandler

// Chain wraps h so that the first middleware is the outermost
func Chain(h FastRequestHandler, middleware ...FastMiddleware) FastRequestHandler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// FastRequestContext wraps fasthttp RequestCtx with the request ID, the matched
// route and a cancellable context for the services
type FastRequestContext struct {
	RequestCtx *fasthttp.RequestCtx
	Params     map[string]string
	requestID  string
	route      string
	ctx        context.Context
}

// NewFastRequestContext takes the request ID from X-Request-ID or generates one,
// and echoes it on the response
func NewFastRequestContext(rc *fasthttp.RequestCtx) *FastRequestContext {
	requestID := string(rc.Request.Header.Peek(core.RequestIDHeader))
	if requestID == "" {
		requestID = core.GenerateRequestID()
	}
	rc.Response.Header.Set(core.RequestIDHeader, requestID)

	return &FastRequestContext{
		RequestCtx: rc,
		Params:     make(map[string]string),
		requestID:  requestID,
		ctx:        core.WithRequestID(context.Background(), requestID),
	}
}

// JSON writes a JSON response
func (c *FastRequestContext) JSON(statusCode int, data interface{}) error {
	if statusCode < 100 || statusCode > 599 {
		return core.Internal(nil, "invalid status code: %d", statusCode)
	}

	body, err := core.JSONEncode(data)
	if err != nil {
		return err
	}
	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.SetContentType("application/json")
	c.RequestCtx.SetBody(body)
	return nil
}

// NoContent writes a status without a body
func (c *FastRequestContext) NoContent(statusCode int) error {
	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.ResetBody()
	return nil
}

// Text writes a text response
func (c *FastRequestContext) Text(statusCode int, text string) error {
	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.SetContentType("text/plain; charset=utf-8")
	c.RequestCtx.SetBodyString(text)
	return nil
}

// BindJSON decodes the request body into v. Malformed bodies are validation errors.
func (c *FastRequestContext) BindJSON(v interface{}) error {
	return core.JSONDecode(c.RequestCtx.PostBody(), v)
}

// Query returns a query parameter value
func (c *FastRequestContext) Query(key string) string {
	return string(c.RequestCtx.QueryArgs().Peek(key))
}

// HasQuery reports whether the query string carries key
func (c *FastRequestContext) HasQuery(key string) bool {
	return c.RequestCtx.QueryArgs().Has(key)
}

// FormValue returns a value from an urlencoded or multipart body
func (c *FastRequestContext) FormValue(key string) string {
	return string(c.RequestCtx.PostArgs().Peek(key))
}

// Param returns a path parameter value
func (c *FastRequestContext) Param(key string) string {
	return c.Params[key]
}

// ParamInt64 parses a numeric path parameter
func (c *FastRequestContext) ParamInt64(key string) (int64, error) {
	raw := c.Params[key]
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.Validation("%s: value is not a valid integer", key)
	}
	return v, nil
}

// Header returns a request header value
func (c *FastRequestContext) Header(key string) string {
	return string(c.RequestCtx.Request.Header.Peek(key))
}

// Method returns the HTTP method
func (c *FastRequestContext) Method() string {
	return string(c.RequestCtx.Method())
}

// Path returns the request path
func (c *FastRequestContext) Path() string {
	return string(c.RequestCtx.Path())
}

// Route returns the pattern of the matched route, or "" before routing or when
// nothing matched
func (c *FastRequestContext) Route() string {
	return c.route
}

// RequestID returns the request ID for this request
func (c *FastRequestContext) RequestID() string {
	return c.requestID
}

// StatusCode returns the response status written so far
func (c *FastRequestContext) StatusCode() int {
	return c.RequestCtx.Response.StatusCode()
}

// Context returns the context handed to services. It carries the request ID.
func (c *FastRequestContext) Context() context.Context {
	return c.ctx
}

// SetContext replaces the context, e.g. to add a deadline or a span
func (c *FastRequestContext) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Set stores a request-scoped value
func (c *FastRequestContext) Set(key string, value interface{}) {
	c.RequestCtx.SetUserValue(key, value)
}

// Get returns a request-scoped value
func (c *FastRequestContext) Get(key string) interface{} {
	return c.RequestCtx.UserValue(key)
}
