package security

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/web"
)

func serve(r *web.Router, method, uri string, headers map[string]string) *fasthttp.RequestCtx {
	rc := &fasthttp.RequestCtx{}
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(uri)
	for k, v := range headers {
		rc.Request.Header.Set(k, v)
	}
	r.Handler()(rc)
	return rc
}

func okRouter(mw ...web.FastMiddleware) *web.Router {
	r := web.NewRouter()
	r.Use(mw...)
	r.GETFast("/x", func(ctx *web.FastRequestContext) error {
		return ctx.JSON(200, map[string]bool{"ok": true})
	})
	return r
}

func TestRateLimiter_TokenBucket(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		Now:               func() time.Time { return now },
	})

	for i := 0; i < 60; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := rl.Allow("a")
	if ok {
		t.Fatal("61st request should be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v", wait)
	}
	if ok, _ := rl.Allow("a"); ok {
		t.Error("a rejected request must not leave a token behind")
	}

	if ok, _ := rl.Allow("b"); !ok {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if ok, _ := rl.Allow("a"); !ok {
		t.Error("one token refills per second at 60/min")
	}
	if ok, _ := rl.Allow("a"); ok {
		t.Error("only one token should have refilled")
	}

	now = now.Add(20 * time.Minute)
	rl.Allow("c")
	if _, exists := rl.clients["b"]; exists {
		t.Error("idle clients should be swept")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	r := okRouter(RateLimit(RateLimitConfig{
		RequestsPerMinute: 2,
		KeyFunc:           func(*web.FastRequestContext) string { return "client" },
	}))

	for i := 0; i < 2; i++ {
		if rc := serve(r, "GET", "/x", nil); rc.Response.StatusCode() != 200 {
			t.Fatalf("request %d: status %d", i, rc.Response.StatusCode())
		}
	}
	rc := serve(r, "GET", "/x", nil)
	if rc.Response.StatusCode() != fasthttp.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rc.Response.StatusCode())
	}
	if rc.Response.Header.Peek("Retry-After") == nil {
		t.Error("Retry-After missing")
	}
}

func TestHeaders(t *testing.T) {
	r := okRouter(Headers(DefaultHeadersConfig()))
	rc := serve(r, "GET", "/x", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := string(rc.Response.Header.Peek(k)); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rc.Response.Header.Peek("Strict-Transport-Security") != nil {
		t.Error("HSTS is off by default")
	}

	cfg := DefaultHeadersConfig()
	cfg.HSTS = true
	rc = serve(okRouter(Headers(cfg)), "GET", "/x", nil)
	if got := string(rc.Response.Header.Peek("Strict-Transport-Security")); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestCORS(t *testing.T) {
	t.Run("any origin", func(t *testing.T) {
		r := okRouter(CORS(DefaultCORSConfig()))
		rc := serve(r, "GET", "/x", map[string]string{"Origin": "https://app.example.com"})
		if got := string(rc.Response.Header.Peek("Access-Control-Allow-Origin")); got != "*" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		r := okRouter(CORS(DefaultCORSConfig()))
		rc := serve(r, "OPTIONS", "/x", map[string]string{
			"Origin":                        "https://app.example.com",
			"Access-Control-Request-Method": "PATCH",
		})
		if rc.Response.StatusCode() != 204 {
			t.Errorf("status = %d, want 204", rc.Response.StatusCode())
		}
		if got := string(rc.Response.Header.Peek("Access-Control-Allow-Methods")); got != "GET, POST, PUT, PATCH, DELETE" {
			t.Errorf("Allow-Methods = %q", got)
		}
	})

	t.Run("listed origins", func(t *testing.T) {
		r := okRouter(CORS(CORSConfig{AllowedOrigins: []string{"https://good.example"}}))

		rc := serve(r, "GET", "/x", map[string]string{"Origin": "https://good.example"})
		if got := string(rc.Response.Header.Peek("Access-Control-Allow-Origin")); got != "https://good.example" {
			t.Errorf("Allow-Origin = %q", got)
		}

		rc = serve(r, "GET", "/x", map[string]string{"Origin": "https://evil.example"})
		if rc.Response.Header.Peek("Access-Control-Allow-Origin") != nil {
			t.Error("unlisted origin must not be allowed")
		}
		if rc.Response.StatusCode() != 200 {
			t.Errorf("request still served, got %d", rc.Response.StatusCode())
		}
	})
}
