package prometheus

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fluxorio/todoapi/pkg/web"
)

// unmatchedRoute labels requests that hit no route, so arbitrary paths do
// not become label values
const unmatchedRoute = "unmatched"

// FastHTTPMetricsMiddleware records HTTP metrics labelled by route pattern
func (m *Metrics) FastHTTPMetricsMiddleware() web.FastMiddleware {
	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			start := time.Now()
			requestSize := int64(len(ctx.RequestCtx.PostBody()))

			err := next(ctx)

			status := ctx.StatusCode()
			if err != nil {
				status = web.StatusFor(err)
			}
			route := ctx.Route()
			if route == "" {
				route = unmatchedRoute
			}
			responseSize := int64(len(ctx.RequestCtx.Response.Body()))

			m.RecordHTTPRequest(ctx.Method(), route, status, time.Since(start), requestSize, responseSize)
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() web.FastRequestHandler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return func(ctx *web.FastRequestContext) error {
		h(ctx.RequestCtx)
		return nil
	}
}

// StatsSource is anything exposing database pool statistics
type StatsSource interface {
	Stats() sql.DBStats
}

// ServerSource is anything exposing server statistics
type ServerSource interface {
	Metrics() web.ServerMetrics
}

// Collect refreshes the pool and server gauges once
func (m *Metrics) Collect(db StatsSource, server ServerSource) {
	if db != nil {
		m.UpdateDatabaseStats(db.Stats())
	}
	if server != nil {
		m.UpdateServerMetrics(server.Metrics())
	}
}

// RunCollector refreshes the gauges every interval until ctx is done
func (m *Metrics) RunCollector(ctx context.Context, interval time.Duration, db StatsSource, server ServerSource) {
	m.Collect(db, server)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Collect(db, server)
		}
	}
}
