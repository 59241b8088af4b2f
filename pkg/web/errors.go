package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/core"
)

// HTTPError is a transport-level failure that carries its own status, such as
// an unmatched route or a rejected request
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Detail)
}

// NewHTTPError builds an HTTPError; an empty detail uses the status text
func NewHTTPError(status int, detail string) *HTTPError {
	if detail == "" {
		detail = fasthttp.StatusMessage(status)
	}
	return &HTTPError{Status: status, Detail: detail}
}

// ErrorHandler turns a handler error into a response
type ErrorHandler func(ctx *FastRequestContext, err error)

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fasthttp.StatusGatewayTimeout
	}

	switch core.KindOf(err) {
	case core.KindNotFound:
		return fasthttp.StatusNotFound
	case core.KindConflict, core.KindBadRequest:
		return fasthttp.StatusBadRequest
	case core.KindUnauthorized:
		return fasthttp.StatusUnauthorized
	case core.KindValidation:
		return fasthttp.StatusUnprocessableEntity
	default:
		return fasthttp.StatusInternalServerError
	}
}

// Detail returns the message shown to the caller for err
func Detail(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Detail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timeout"
	}
	return core.PublicMessage(err)
}

// WriteError writes {"detail": "..."} with the status for err
func WriteError(ctx *FastRequestContext, err error) {
	status := StatusFor(err)
	if status == fasthttp.StatusUnauthorized {
		ctx.RequestCtx.Response.Header.Set("WWW-Authenticate", "Bearer")
	}
	if jsonErr := ctx.JSON(status, map[string]string{"detail": Detail(err)}); jsonErr != nil {
		ctx.RequestCtx.Error(fasthttp.StatusMessage(status), status)
	}
}

// DefaultErrorHandler writes the error and logs server-side failures
func DefaultErrorHandler(logger core.Logger) ErrorHandler {
	if logger == nil {
		logger = core.NewNopLogger()
	}
	return func(ctx *FastRequestContext, err error) {
		if status := StatusFor(err); status >= fasthttp.StatusInternalServerError {
			logger.WithContext(ctx.Context()).WithFields(map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": status,
			}).Errorf("request failed: %v", err)
		}
		WriteError(ctx, err)
	}
}
