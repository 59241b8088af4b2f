package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/web"
)

// RecoveryConfig configures panic recovery middleware
type RecoveryConfig struct {
	// Logger is the logger to use for panic logging (default: core.NewDefaultLogger())
	Logger core.Logger

	// StackTrace logs the goroutine stack with the panic
	StackTrace bool
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger:     core.NewDefaultLogger(),
		StackTrace: false,
	}
}

// Recovery middleware recovers from panics and answers 500 with the request ID
func Recovery(config RecoveryConfig) web.FastMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				fields := map[string]interface{}{
					"request_id": ctx.RequestID(),
					"method":     ctx.Method(),
					"path":       ctx.Path(),
				}
				if config.StackTrace {
					fields["stack"] = string(debug.Stack())
				}
				logger.WithFields(fields).Errorf("panic recovered: %v", r)

				ctx.RequestCtx.Response.Reset()
				ctx.RequestCtx.Response.Header.Set(core.RequestIDHeader, ctx.RequestID())
				web.WriteError(ctx, core.Internal(fmt.Errorf("panic: %v", r), "panic"))
				err = nil
			}()

			return next(ctx)
		}
	}
}
