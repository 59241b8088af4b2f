package otel

import (
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/todoapi/pkg/web"
)

const instrumentationName = "github.com/fluxorio/todoapi/pkg/observability/otel"

// headerCarrier adapts fasthttp request headers to the propagation API
type headerCarrier struct {
	h *fasthttp.RequestHeader
}

func (c headerCarrier) Get(key string) string {
	return string(c.h.Peek(key))
}

func (c headerCarrier) Set(key, value string) {
	c.h.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	var keys []string
	c.h.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// HTTPMiddleware starts a server span per request, continuing any incoming
// trace context. A nil provider uses the global one.
func HTTPMiddleware(tp trace.TracerProvider) web.FastMiddleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(instrumentationName)

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			parent := otel.GetTextMapPropagator().Extract(ctx.Context(), headerCarrier{&ctx.RequestCtx.Request.Header})

			spanCtx, span := tracer.Start(parent, ctx.Method(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", ctx.Method()),
					attribute.String("url.path", ctx.Path()),
					attribute.String("http.request_id", ctx.RequestID()),
				),
			)
			defer span.End()

			previous := ctx.Context()
			ctx.SetContext(spanCtx)
			defer ctx.SetContext(previous)

			err := next(ctx)

			status := ctx.StatusCode()
			if err != nil {
				status = web.StatusFor(err)
				span.RecordError(err)
			}
			if route := ctx.Route(); route != "" {
				span.SetName(ctx.Method() + " " + route)
				span.SetAttributes(attribute.String("http.route", route))
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= fasthttp.StatusInternalServerError {
				span.SetStatus(codes.Error, fasthttp.StatusMessage(status))
			}
			return err
		}
	}
}
