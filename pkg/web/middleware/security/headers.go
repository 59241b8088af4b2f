package security

import (
	"strconv"

	"github.com/fluxorio/todoapi/pkg/web"
)

// HeadersConfig configures security headers
type HeadersConfig struct {
	// HSTS (HTTP Strict Transport Security); only useful behind TLS
	HSTS           bool
	HSTSMaxAge     int // seconds, default 31536000 (1 year)
	HSTSIncludeSub bool

	// CSP (Content Security Policy)
	CSP string

	// X-Frame-Options: DENY or SAMEORIGIN
	XFrameOptions string

	// X-Content-Type-Options: nosniff
	XContentTypeOptions bool

	// Referrer-Policy
	ReferrerPolicy string

	// Cross-Origin-Resource-Policy, e.g. "same-origin"
	CrossOriginResourcePolicy string

	// Custom headers
	CustomHeaders map[string]string
}

// DefaultHeadersConfig returns headers suited to a JSON API
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		HSTS:                false,
		HSTSMaxAge:          31536000,
		HSTSIncludeSub:      true,
		XContentTypeOptions: true,
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:      "no-referrer",
		XFrameOptions:       "DENY",
		CustomHeaders:       map[string]string{"Cache-Control": "no-store"},
	}
}

// Headers middleware adds security headers to responses. The header set is
// computed once.
func Headers(config HeadersConfig) web.FastMiddleware {
	headers := make([][2]string, 0, 8+len(config.CustomHeaders))
	add := func(name, value string) {
		if value != "" {
			headers = append(headers, [2]string{name, value})
		}
	}

	if config.HSTS {
		maxAge := config.HSTSMaxAge
		if maxAge <= 0 {
			maxAge = 31536000
		}
		value := "max-age=" + strconv.Itoa(maxAge)
		if config.HSTSIncludeSub {
			value += "; includeSubDomains"
		}
		add("Strict-Transport-Security", value)
	}
	add("Content-Security-Policy", config.CSP)
	add("X-Frame-Options", config.XFrameOptions)
	if config.XContentTypeOptions {
		add("X-Content-Type-Options", "nosniff")
	}
	add("Referrer-Policy", config.ReferrerPolicy)
	add("Cross-Origin-Resource-Policy", config.CrossOriginResourcePolicy)
	for key, value := range config.CustomHeaders {
		add(key, value)
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			for _, h := range headers {
				ctx.RequestCtx.Response.Header.Set(h[0], h[1])
			}
			return next(ctx)
		}
	}
}
