package otel

import (
	"context"
	"testing"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/web"
)

func tracedRouter(tp trace.TracerProvider) *web.Router {
	r := web.NewRouter()
	r.Use(HTTPMiddleware(tp))
	r.GETFast("/todos/:id", func(ctx *web.FastRequestContext) error {
		if !trace.SpanContextFromContext(ctx.Context()).IsValid() {
			return core.Internal(nil, "no span in handler context")
		}
		if ctx.Param("id") == "0" {
			return core.Internal(nil, "storage down")
		}
		return ctx.NoContent(204)
	})
	return r
}

func serve(r *web.Router, uri string, headers map[string]string) {
	rc := &fasthttp.RequestCtx{}
	rc.Request.Header.SetMethod("GET")
	rc.Request.SetRequestURI(uri)
	for k, v := range headers {
		rc.Request.Header.Set(k, v)
	}
	r.Handler()(rc)
}

func attr(span sdktrace.ReadOnlySpan, key string) attribute.Value {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestHTTPMiddlewareRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := NewTracerProvider(Config{ServiceName: "test", SampleRate: 1}, sdktrace.WithSpanProcessor(recorder))

	r := tracedRouter(tp)
	serve(r, "/todos/5", nil)
	serve(r, "/todos/0", nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}

	ok := spans[0]
	if ok.Name() != "GET /todos/:id" {
		t.Errorf("span name = %q", ok.Name())
	}
	if ok.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", ok.SpanKind())
	}
	if got := attr(ok, "http.response.status_code").AsInt64(); got != 204 {
		t.Errorf("status attribute = %d", got)
	}
	if ok.Status().Code == codes.Error {
		t.Error("204 should not mark the span as an error")
	}

	failed := spans[1]
	if got := attr(failed, "http.response.status_code").AsInt64(); got != 500 {
		t.Errorf("status attribute = %d", got)
	}
	if failed.Status().Code != codes.Error {
		t.Error("500 should mark the span as an error")
	}
}

func TestHTTPMiddlewareContinuesIncomingTrace(t *testing.T) {
	if _, err := Initialize(context.Background(), Config{Exporter: "none"}); err != nil {
		t.Fatal(err)
	}
	recorder := tracetest.NewSpanRecorder()
	tp := NewTracerProvider(Config{ServiceName: "test", SampleRate: 1}, sdktrace.WithSpanProcessor(recorder))

	serve(tracedRouter(tp), "/todos/5", map[string]string{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s, want the incoming one", got)
	}
	if got := spans[0].Parent().SpanID().String(); got != "00f067aa0ba902b7" {
		t.Errorf("parent span = %s", got)
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"none", Config{Exporter: "none"}, false},
		{"stdout", Config{Exporter: "stdout", ServiceName: "test", SampleRate: 1, Output: &discard{}}, false},
		{"zipkin", Config{Exporter: "zipkin", Endpoint: "http://localhost:9411/api/v2/spans", ServiceName: "test"}, false},
		{"zipkin without endpoint", Config{Exporter: "zipkin"}, true},
		{"unknown", Config{Exporter: "jaeger"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Initialize(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Initialize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if err := shutdown(context.Background()); err != nil {
					t.Errorf("shutdown: %v", err)
				}
			}
		})
	}
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
