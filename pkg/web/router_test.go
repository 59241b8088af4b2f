package web

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/core"
)

func newRequest(method, uri, body string) *fasthttp.RequestCtx {
	rc := &fasthttp.RequestCtx{}
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(uri)
	if body != "" {
		rc.Request.SetBodyString(body)
		rc.Request.Header.SetContentType("application/json")
	}
	return rc
}

func detailOf(t *testing.T, rc *fasthttp.RequestCtx) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rc.Response.Body(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", rc.Response.Body())
	}
	return body.Detail
}

func TestRouter_StaticBeatsParam(t *testing.T) {
	r := NewRouter()
	api := r.Group("/api/v1")
	todos := api.Group("/todos")

	todos.GETFast("/:id", func(ctx *FastRequestContext) error {
		return ctx.Text(200, "id="+ctx.Param("id"))
	})
	todos.GETFast("/trash", func(ctx *FastRequestContext) error {
		return ctx.Text(200, "trash")
	})
	todos.POSTFast("/:id/restore", func(ctx *FastRequestContext) error {
		return ctx.Text(200, "restore="+ctx.Param("id")+" route="+ctx.Route())
	})

	tests := []struct {
		method, uri, want string
	}{
		{"GET", "/api/v1/todos/trash", "trash"},
		{"GET", "/api/v1/todos/42", "id=42"},
		{"GET", "/api/v1/todos/42/", "id=42"},
		{"POST", "/api/v1/todos/7/restore", "restore=7 route=/api/v1/todos/:id/restore"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.uri, func(t *testing.T) {
			rc := newRequest(tt.method, tt.uri, "")
			r.Handler()(rc)
			if rc.Response.StatusCode() != 200 {
				t.Fatalf("status = %d", rc.Response.StatusCode())
			}
			if got := string(rc.Response.Body()); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := NewRouter()
	r.GETFast("/health", func(ctx *FastRequestContext) error {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	})

	rc := newRequest("GET", "/nope", "")
	r.Handler()(rc)
	if rc.Response.StatusCode() != 404 || detailOf(t, rc) != "Not Found" {
		t.Errorf("unknown path: %d %s", rc.Response.StatusCode(), rc.Response.Body())
	}

	rc = newRequest("DELETE", "/health", "")
	r.Handler()(rc)
	if rc.Response.StatusCode() != 405 {
		t.Errorf("wrong method status = %d, want 405", rc.Response.StatusCode())
	}
	if allow := string(rc.Response.Header.Peek("Allow")); allow != "GET" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"not found", core.NotFound("ToDo with id=%d not found", 3), 404, "ToDo with id=3 not found"},
		{"conflict", core.Conflict("Tag 'Work' already exists"), 400, "Tag 'Work' already exists"},
		{"bad request", core.BadRequest("ToDo with id=1 is not deleted"), 400, "ToDo with id=1 is not deleted"},
		{"validation", core.Validation("title: must be at least 3 characters"), 422, "title: must be at least 3 characters"},
		{"unauthorized", core.Unauthorized("Could not validate credentials"), 401, "Could not validate credentials"},
		{"internal", core.Internal(errors.New("disk on fire"), "list todos"), 500, "Internal Server Error"},
		{"plain error", errors.New("boom"), 500, "Internal Server Error"},
		{"deadline", core.Internal(context.DeadlineExceeded, "query"), 504, "Request timeout"},
		{"http error", NewHTTPError(429, ""), 429, "Too Many Requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter()
			r.GETFast("/x", func(ctx *FastRequestContext) error { return tt.err })

			rc := newRequest("GET", "/x", "")
			r.Handler()(rc)
			if rc.Response.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", rc.Response.StatusCode(), tt.status)
			}
			if got := detailOf(t, rc); got != tt.detail {
				t.Errorf("detail = %q, want %q", got, tt.detail)
			}
			wantAuth := ""
			if tt.status == 401 {
				wantAuth = "Bearer"
			}
			if got := string(rc.Response.Header.Peek("WWW-Authenticate")); got != wantAuth {
				t.Errorf("WWW-Authenticate = %q, want %q", got, wantAuth)
			}
		})
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) FastMiddleware {
		return func(next FastRequestHandler) FastRequestHandler {
			return func(ctx *FastRequestContext) error {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	r := NewRouter()
	r.Use(mark("global"))
	g := r.Group("/g", mark("group"))
	g.Use(mark("group-use"))
	g.GETFast("/x", func(ctx *FastRequestContext) error {
		order = append(order, "handler")
		return ctx.NoContent(204)
	})

	r.Handler()(newRequest("GET", "/g/x", ""))
	want := []string{"global", "group", "group-use", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	order = nil
	rc := newRequest("GET", "/missing", "")
	r.Handler()(rc)
	if len(order) != 1 || order[0] != "global" || rc.Response.StatusCode() != 404 {
		t.Errorf("unmatched request: order=%v status=%d", order, rc.Response.StatusCode())
	}
}

func TestFastRequestContext(t *testing.T) {
	rc := newRequest("POST", "/x?limit=5&is_done=", `{"title":"abc"}`)
	rc.Request.Header.Set(core.RequestIDHeader, "req-1")
	ctx := NewFastRequestContext(rc)

	if ctx.RequestID() != "req-1" || core.GetRequestID(ctx.Context()) != "req-1" {
		t.Errorf("request id not propagated: %q", ctx.RequestID())
	}
	if string(rc.Response.Header.Peek(core.RequestIDHeader)) != "req-1" {
		t.Error("request id not echoed")
	}
	if ctx.Query("limit") != "5" || !ctx.HasQuery("is_done") || ctx.HasQuery("q") {
		t.Error("query parsing")
	}

	var body struct{ Title string }
	if err := ctx.BindJSON(&body); err != nil || body.Title != "abc" {
		t.Errorf("BindJSON() = %v, %+v", err, body)
	}

	rc.Request.SetBodyString(`{"title":`)
	if err := ctx.BindJSON(&body); !core.IsKind(err, core.KindValidation) {
		t.Errorf("BindJSON() malformed = %v, want validation", err)
	}

	ctx.Params["id"] = "abc"
	if _, err := ctx.ParamInt64("id"); !core.IsKind(err, core.KindValidation) {
		t.Errorf("ParamInt64() = %v, want validation", err)
	}
	ctx.Params["id"] = "12"
	if id, err := ctx.ParamInt64("id"); err != nil || id != 12 {
		t.Errorf("ParamInt64() = %d, %v", id, err)
	}

	if err := ctx.JSON(999, "x"); err == nil {
		t.Error("JSON() with invalid status code should fail")
	}

	ctx.Set("user", 5)
	if ctx.Get("user") != 5 {
		t.Error("Set/Get")
	}

	generated := NewFastRequestContext(newRequest("GET", "/", ""))
	if generated.RequestID() == "" {
		t.Error("request id should be generated")
	}
}
