package web

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/core"
)

// ServerConfig configures the fasthttp server
type ServerConfig struct {
	Addr               string
	Name               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxInFlight        int // 0 disables backpressure
	MaxRequestBodySize int
}

// DefaultServerConfig returns the configuration used by the API server
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:               addr,
		Name:               "todoapi",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxInFlight:        1000,
		MaxRequestBodySize: 1 << 20,
	}
}

// Server is a fasthttp server in front of a Router, with an in-flight cap
type Server struct {
	config       ServerConfig
	router       *Router
	server       *fasthttp.Server
	handler      fasthttp.RequestHandler
	backpressure *BackpressureController
	logger       core.Logger

	totalRequests      int64
	successfulRequests int64
	errorRequests      int64
}

// NewServer creates a server for router
func NewServer(config ServerConfig, router *Router, logger core.Logger) *Server {
	if logger == nil {
		logger = core.NewNopLogger()
	}
	s := &Server{
		config:       config,
		router:       router,
		handler:      router.Handler(),
		backpressure: NewBackpressureController(config.MaxInFlight),
		logger:       logger,
	}
	s.server = &fasthttp.Server{
		Handler:               s.handleRequest,
		Name:                  config.Name,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		IdleTimeout:           config.IdleTimeout,
		MaxRequestBodySize:    config.MaxRequestBodySize,
		NoDefaultServerHeader: true,
		ReduceMemoryUsage:     true,
	}
	return s
}

// handleRequest rejects with 503 when the in-flight cap is reached
func (s *Server) handleRequest(rc *fasthttp.RequestCtx) {
	atomic.AddInt64(&s.totalRequests, 1)

	if !s.backpressure.TryAcquire() {
		rc.Response.Header.Set("Retry-After", "1")
		rc.SetStatusCode(fasthttp.StatusServiceUnavailable)
		rc.SetContentType("application/json")
		rc.SetBodyString(`{"detail":"Service Unavailable"}`)
		atomic.AddInt64(&s.errorRequests, 1)
		return
	}
	defer s.backpressure.Release()

	s.handler(rc)

	status := rc.Response.StatusCode()
	if status >= 200 && status < 300 {
		atomic.AddInt64(&s.successfulRequests, 1)
	} else if status >= 500 {
		atomic.AddInt64(&s.errorRequests, 1)
	}
}

// ListenAndServe serves on the configured address until Shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Infof("listening on %s", s.config.Addr)
	return s.server.ListenAndServe(s.config.Addr)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	return s.server.Serve(ln)
}

// Shutdown stops accepting connections and waits for open requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.ShutdownWithContext(ctx)
}

// Router returns the router
func (s *Server) Router() *Router {
	return s.router
}

// Metrics returns current server metrics
func (s *Server) Metrics() ServerMetrics {
	bp := s.backpressure.GetMetrics()
	return ServerMetrics{
		InFlight:           bp.CurrentLoad,
		Capacity:           bp.Capacity,
		Utilization:        bp.Utilization,
		RejectedRequests:   bp.RejectedCount,
		TotalRequests:      atomic.LoadInt64(&s.totalRequests),
		SuccessfulRequests: atomic.LoadInt64(&s.successfulRequests),
		ErrorRequests:      atomic.LoadInt64(&s.errorRequests),
	}
}

// ServerMetrics provides server statistics
type ServerMetrics struct {
	InFlight           int64
	Capacity           int64
	Utilization        float64
	RejectedRequests   int64 // 503s from backpressure
	TotalRequests      int64
	SuccessfulRequests int64 // 2xx
	ErrorRequests      int64 // 5xx
}
