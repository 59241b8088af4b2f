package security

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/web"
)

// CORSConfig configures cross-origin resource sharing
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API; "*" allows any
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST, PUT, PATCH, DELETE
	AllowedMethods []string

	// AllowedHeaders defaults to Authorization, Content-Type, X-Request-ID
	AllowedHeaders []string

	// ExposedHeaders are readable by the browser on responses
	ExposedHeaders []string

	// MaxAge is how long a preflight may be cached, in seconds
	MaxAge int
}

// DefaultCORSConfig allows any origin
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	}
}

// CORS middleware answers preflight requests and decorates responses for
// allowed origins. Requests from other origins pass through undecorated.
func CORS(config CORSConfig) web.FastMiddleware {
	defaults := DefaultCORSConfig()
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = defaults.AllowedMethods
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = defaults.AllowedHeaders
	}

	anyOrigin := false
	allowed := make(map[string]bool, len(config.AllowedOrigins))
	for _, o := range config.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	exposed := strings.Join(config.ExposedHeaders, ", ")

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			origin := ctx.Header("Origin")
			if origin == "" || !(anyOrigin || allowed[origin]) {
				return next(ctx)
			}

			h := &ctx.RequestCtx.Response.Header
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			preflight := ctx.Method() == fasthttp.MethodOptions &&
				ctx.Header("Access-Control-Request-Method") != ""
			if !preflight {
				return next(ctx)
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
			}
			return ctx.NoContent(fasthttp.StatusNoContent)
		}
	}
}
