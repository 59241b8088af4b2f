// Package api is the HTTP surface: handlers, response projections and routes.
package api

import (
	"github.com/fluxorio/todoapi/pkg/auth"
	"github.com/fluxorio/todoapi/pkg/tag"
	"github.com/fluxorio/todoapi/pkg/todo"
	"github.com/fluxorio/todoapi/pkg/web"
	authmw "github.com/fluxorio/todoapi/pkg/web/middleware/auth"
)

// Deps are the services behind the routes
type Deps struct {
	Auth  *auth.Service
	Todos *todo.Service
	Tags  *tag.Service
	DB    Pinger

	// Metrics serves GET /metrics when set
	Metrics web.FastRequestHandler
}

// Register mounts the probes at the root and the API under prefix
func Register(r *web.Router, prefix string, d Deps) {
	health := NewHealthHandler(d.DB)
	r.GETFast("/", health.Root)
	r.GETFast("/health", health.Health)
	r.GETFast("/ready", health.Ready)
	if d.Metrics != nil {
		r.GETFast("/metrics", d.Metrics)
	}

	api := r.Group(prefix)
	bearer := authmw.Bearer(authmw.DefaultBearerConfig(d.Auth))

	authHandler := NewAuthHandler(d.Auth)
	authRoutes := api.Group("/auth")
	authRoutes.POSTFast("/register", authHandler.Register)
	authRoutes.POSTFast("/login", authHandler.Login)
	authRoutes.POSTFast("/login/form", authHandler.LoginForm)
	authRoutes.Group("", bearer).GETFast("/me", authHandler.Me)

	todos := NewTodoHandler(d.Todos)
	todoRoutes := api.Group("/todos", bearer)
	todoRoutes.POSTFast("", todos.Create)
	todoRoutes.GETFast("", todos.List)
	todoRoutes.GETFast("/overdue", todos.Overdue)
	todoRoutes.GETFast("/today", todos.Today)
	todoRoutes.GETFast("/trash", todos.Trash)
	todoRoutes.GETFast("/:id", todos.Get)
	todoRoutes.PUTFast("/:id", todos.Replace)
	todoRoutes.PATCHFast("/:id", todos.Patch)
	todoRoutes.DELETEFast("/:id", todos.Delete)
	todoRoutes.POSTFast("/:id/complete", todos.Complete)
	todoRoutes.POSTFast("/:id/restore", todos.Restore)
	todoRoutes.DELETEFast("/:id/permanent", todos.HardDelete)

	tags := NewTagHandler(d.Tags)
	tagRoutes := api.Group("/tags", bearer)
	tagRoutes.POSTFast("", tags.Create)
	tagRoutes.GETFast("", tags.List)
	tagRoutes.GETFast("/:id", tags.Get)
	tagRoutes.PUTFast("/:id", tags.Update)
	tagRoutes.DELETEFast("/:id", tags.Delete)
}
