// Package app assembles the process: pool, store, services, middleware,
// routes and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/api"
	"github.com/fluxorio/todoapi/pkg/auth"
	"github.com/fluxorio/todoapi/pkg/config"
	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/db"
	"github.com/fluxorio/todoapi/pkg/observability/otel"
	"github.com/fluxorio/todoapi/pkg/observability/prometheus"
	"github.com/fluxorio/todoapi/pkg/store"
	"github.com/fluxorio/todoapi/pkg/tag"
	"github.com/fluxorio/todoapi/pkg/todo"
	"github.com/fluxorio/todoapi/pkg/web"
	"github.com/fluxorio/todoapi/pkg/web/middleware"
	"github.com/fluxorio/todoapi/pkg/web/middleware/security"
)

// Version is set at build time with -ldflags
var Version = "dev"

// App is a wired instance of the service
type App struct {
	config   config.App
	logger   core.Logger
	pool     *db.Pool
	store    *store.Store
	metrics  *prometheus.Metrics
	router   *web.Router
	server   *web.Server
	shutdown otel.ShutdownFunc

	Auth  *auth.Service
	Todos *todo.Service
	Tags  *tag.Service
}

// Option customises New
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock replaces time.Now in the services
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New opens the database, applies the schema when configured to, and wires
// services and routes
func New(ctx context.Context, cfg config.App, logger core.Logger, opts ...Option) (*App, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = core.NewNopLogger()
	}

	loc, err := time.LoadLocation(cfg.Todos.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	shutdown, err := otel.Initialize(ctx, otel.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.ZipkinURL,
		SampleRate:     cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, err
	}

	pool, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := pool.Migrate(ctx); err != nil {
			_ = pool.Close()
			_ = shutdown(ctx)
			return nil, err
		}
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth)
	if err != nil {
		_ = pool.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		pool:     pool,
		store:    store.New(pool),
		metrics:  prometheus.NewMetrics(cfg.Tracing.ServiceName),
		shutdown: shutdown,
	}

	a.Auth = auth.NewService(a.store, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens,
		logger.WithFields(map[string]interface{}{"component": "auth"}), a.metrics)
	a.Todos = todo.NewService(a.store,
		todo.WithClock(o.clock),
		todo.WithLocation(loc),
		todo.WithStrictTagIDs(cfg.Todos.StrictTagIDs),
		todo.WithLogger(logger.WithFields(map[string]interface{}{"component": "todo"})),
		todo.WithRecorder(a.metrics),
	)
	a.Tags = tag.NewService(a.store, logger.WithFields(map[string]interface{}{"component": "tag"}))

	a.router = a.buildRouter()
	serverCfg := web.DefaultServerConfig(cfg.HTTP.Addr)
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.MaxInFlight = cfg.HTTP.MaxInFlight
	a.server = web.NewServer(serverCfg, a.router, logger)
	return a, nil
}

// OpenDatabase opens a pool for the database settings
func OpenDatabase(ctx context.Context, cfg config.Database) (*db.Pool, error) {
	poolCfg := db.DefaultPoolConfig(cfg.DSN, cfg.Driver)
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = cfg.ConnMaxLifetime
	}

	pool, err := db.NewPool(poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (a *App) buildRouter() *web.Router {
	cfg := a.config.HTTP
	r := web.NewRouter()
	r.SetErrorHandler(web.DefaultErrorHandler(a.logger))

	chain := []web.FastMiddleware{
		middleware.Recovery(middleware.RecoveryConfig{Logger: a.logger, StackTrace: true}),
		middleware.Logging(middleware.LoggingConfig{
			Logger:       a.logger.WithFields(map[string]interface{}{"component": "http"}),
			LogRequestID: true,
			SkipPaths:    []string{"/health", "/ready", "/metrics"},
		}),
		a.metrics.FastHTTPMetricsMiddleware(),
		otel.HTTPMiddleware(nil),
		security.CORS(security.CORSConfig{AllowedOrigins: cfg.CORSOrigins}),
		security.Headers(security.DefaultHeadersConfig()),
	}
	if cfg.RateLimitPerMinute > 0 {
		chain = append(chain, security.RateLimit(security.RateLimitConfig{RequestsPerMinute: cfg.RateLimitPerMinute}))
	}
	if cfg.RequestTimeout > 0 {
		chain = append(chain, middleware.Timeout(middleware.TimeoutConfig{
			Timeout:   cfg.RequestTimeout,
			Logger:    a.logger,
			SkipPaths: []string{"/metrics"},
		}))
	}
	r.Use(chain...)

	api.Register(r, cfg.Prefix, api.Deps{
		Auth:    a.Auth,
		Todos:   a.Todos,
		Tags:    a.Tags,
		DB:      a.pool,
		Metrics: a.metrics.Handler(),
	})
	return r
}

// Handler returns the routed handler without the server's in-flight cap
func (a *App) Handler() fasthttp.RequestHandler {
	return a.router.Handler()
}

// Metrics returns the metrics collection
func (a *App) Metrics() *prometheus.Metrics {
	return a.metrics
}

// Server returns the HTTP server
func (a *App) Server() *web.Server {
	return a.server
}

// Run serves on ln (or the configured address when ln is nil) until ctx is
// cancelled, then drains open requests for up to drain
func (a *App) Run(ctx context.Context, ln net.Listener, drain time.Duration) error {
	collectCtx, stopCollector := context.WithCancel(ctx)
	defer stopCollector()
	go a.metrics.RunCollector(collectCtx, 5*time.Second, a.pool, a.server)

	errCh := make(chan error, 1)
	go func() {
		if ln != nil {
			errCh <- a.server.Serve(ln)
			return
		}
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-errCh
}

// Close releases the database and flushes traces
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.pool.Close(), a.shutdown(ctx))
}
