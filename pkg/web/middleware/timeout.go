package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/web"
)

// TimeoutConfig configures request timeout middleware
type TimeoutConfig struct {
	// Timeout is the request timeout duration
	Timeout time.Duration

	// Logger is the logger to use for timeout logging (default: core.NewDefaultLogger())
	Logger core.Logger

	// SkipPaths is a list of path prefixes without a deadline
	SkipPaths []string
}

// DefaultTimeoutConfig returns a default timeout configuration
func DefaultTimeoutConfig(timeout time.Duration) TimeoutConfig {
	return TimeoutConfig{
		Timeout:   timeout,
		Logger:    core.NewDefaultLogger(),
		SkipPaths: []string{},
	}
}

// Timeout puts a deadline on the request context. Storage calls made with
// ctx.Context() give up at the deadline; the error handler answers 504.
func Timeout(config TimeoutConfig) web.FastMiddleware {
	if config.Timeout <= 0 {
		panic("Timeout: timeout duration must be positive")
	}

	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			path := ctx.Path()
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(ctx)
				}
			}

			parent := ctx.Context()
			timeoutCtx, cancel := context.WithTimeout(parent, config.Timeout)
			defer cancel()
			ctx.SetContext(timeoutCtx)
			defer ctx.SetContext(parent)

			err := next(ctx)
			if timeoutCtx.Err() == context.DeadlineExceeded {
				logger.WithContext(timeoutCtx).WithFields(map[string]interface{}{
					"method":  ctx.Method(),
					"path":    path,
					"timeout": config.Timeout.String(),
				}).Warnf("request timeout: %s %s", ctx.Method(), path)
			}
			return err
		}
	}
}
