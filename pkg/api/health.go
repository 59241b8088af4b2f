package api

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/web"
)

// Pinger checks that storage is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the unauthenticated probes
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler creates probes; db may be nil, in which case /ready only
// reports the process is up
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

// Root handles GET /
func (h *HealthHandler) Root(ctx *web.FastRequestContext) error {
	return ctx.JSON(fasthttp.StatusOK, map[string]string{"message": "Welcome to the ToDo API"})
}

// Health handles GET /health, a liveness probe
func (h *HealthHandler) Health(ctx *web.FastRequestContext) error {
	return ctx.JSON(fasthttp.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready; it fails with 503 while the database is unreachable
func (h *HealthHandler) Ready(ctx *web.FastRequestContext) error {
	dbOK := true
	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Context(), h.timeout)
		defer cancel()
		dbOK = h.db.Ping(pingCtx) == nil
	}

	status := fasthttp.StatusOK
	if !dbOK {
		status = fasthttp.StatusServiceUnavailable
	}
	return ctx.JSON(status, map[string]bool{"ready": dbOK, "db": dbOK})
}
