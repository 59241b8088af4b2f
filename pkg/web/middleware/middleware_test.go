package middleware

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/web"
)

func bufferLogger(t *testing.T) (core.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := core.NewLogger(core.LoggerConfig{Level: "debug", Format: "logfmt", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	return logger, &buf
}

func do(r *web.Router, method, uri string) *fasthttp.RequestCtx {
	rc := &fasthttp.RequestCtx{}
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(uri)
	rc.Request.Header.Set(core.RequestIDHeader, "req-42")
	r.Handler()(rc)
	return rc
}

func TestRecovery(t *testing.T) {
	logger, buf := bufferLogger(t)
	r := web.NewRouter()
	r.Use(Recovery(RecoveryConfig{Logger: logger}))
	r.GETFast("/panic", func(ctx *web.FastRequestContext) error {
		ctx.RequestCtx.SetBodyString("partial")
		panic("kaboom")
	})

	rc := do(r, "GET", "/panic")
	if rc.Response.StatusCode() != 500 {
		t.Fatalf("status = %d, want 500", rc.Response.StatusCode())
	}
	if got := string(rc.Response.Body()); got != `{"detail":"Internal Server Error"}` {
		t.Errorf("body = %s", got)
	}
	if got := string(rc.Response.Header.Peek(core.RequestIDHeader)); got != "req-42" {
		t.Errorf("request id = %q", got)
	}
	if !strings.Contains(buf.String(), "kaboom") || !strings.Contains(buf.String(), "req-42") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestTimeout(t *testing.T) {
	logger, buf := bufferLogger(t)
	r := web.NewRouter()
	r.Use(Timeout(TimeoutConfig{Timeout: 20 * time.Millisecond, Logger: logger, SkipPaths: []string{"/free"}}))

	slow := func(ctx *web.FastRequestContext) error {
		if _, ok := ctx.Context().Deadline(); !ok {
			return ctx.Text(200, "no deadline")
		}
		select {
		case <-ctx.Context().Done():
			return core.Internal(ctx.Context().Err(), "query todos")
		case <-time.After(time.Second):
			return ctx.Text(200, "late")
		}
	}
	r.GETFast("/slow", slow)
	r.GETFast("/free", slow)

	rc := do(r, "GET", "/slow")
	if rc.Response.StatusCode() != fasthttp.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rc.Response.StatusCode())
	}
	if !strings.Contains(buf.String(), "request timeout") {
		t.Errorf("timeout not logged: %s", buf.String())
	}

	rc = do(r, "GET", "/free")
	if string(rc.Response.Body()) != "no deadline" {
		t.Errorf("skipped path got a deadline: %s", rc.Response.Body())
	}
}

func TestTimeoutRequiresPositiveDuration(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Timeout(0) should panic")
		}
	}()
	Timeout(TimeoutConfig{})
}

func TestLogging(t *testing.T) {
	logger, buf := bufferLogger(t)
	r := web.NewRouter()
	r.Use(Logging(LoggingConfig{Logger: logger, LogRequestID: true, SkipPaths: []string{"/health"}}))
	r.GETFast("/health", func(ctx *web.FastRequestContext) error { return ctx.Text(200, "ok") })
	r.GETFast("/missing", func(ctx *web.FastRequestContext) error { return core.NotFound("ToDo with id=1 not found") })

	do(r, "GET", "/health")
	if buf.Len() != 0 {
		t.Errorf("skipped path was logged: %s", buf.String())
	}

	do(r, "GET", "/missing")
	line := buf.String()
	for _, want := range []string{"status=404", "path=/missing", "request_id=req-42", "level=warn"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}

	buf.Reset()
	do(r, "GET", "/nowhere")
	if !strings.Contains(buf.String(), "status=404") {
		t.Errorf("unmatched request not logged: %s", buf.String())
	}
}

func TestTimeoutRestoresContext(t *testing.T) {
	r := web.NewRouter()
	var inner context.Context
	r.Use(func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			err := next(ctx)
			inner = ctx.Context()
			return err
		}
	})
	r.Use(Timeout(DefaultTimeoutConfig(time.Second)))
	r.GETFast("/x", func(ctx *web.FastRequestContext) error { return ctx.NoContent(204) })

	do(r, "GET", "/x")
	if _, ok := inner.Deadline(); ok {
		t.Error("deadline should not leak past the middleware")
	}
}
