package middleware

import (
	"strings"
	"time"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/web"
)

// LoggingConfig configures the access log
type LoggingConfig struct {
	// Logger receives one line per request (default: core.NewDefaultLogger())
	Logger core.Logger

	// LogRequestID adds the request ID to every line
	LogRequestID bool

	// SkipPaths is a list of paths that are not logged, e.g. probes
	SkipPaths []string
}

// Logging middleware writes an access log line after the request completes.
// 5xx are logged as errors, 4xx as warnings, the rest at info.
func Logging(config LoggingConfig) web.FastMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			path := ctx.Path()
			for _, skip := range config.SkipPaths {
				if path == skip || strings.HasSuffix(skip, "/") && strings.HasPrefix(path, skip) {
					return next(ctx)
				}
			}

			start := time.Now()
			err := next(ctx)

			status := ctx.StatusCode()
			if err != nil {
				status = web.StatusFor(err)
			}
			fields := map[string]interface{}{
				"method":   ctx.Method(),
				"path":     path,
				"status":   status,
				"duration": time.Since(start).String(),
				"bytes":    len(ctx.RequestCtx.Response.Body()),
			}
			if config.LogRequestID {
				fields["request_id"] = ctx.RequestID()
			}

			entry := logger.WithFields(fields)
			switch {
			case status >= 500:
				entry.Error("request")
			case status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return err
		}
	}
}
