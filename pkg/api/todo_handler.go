package api

import (
	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/todo"
	"github.com/fluxorio/todoapi/pkg/web"
	authmw "github.com/fluxorio/todoapi/pkg/web/middleware/auth"
)

// TodoHandler serves the /todos routes. Every route runs behind Bearer.
type TodoHandler struct {
	todos *todo.Service
}

// NewTodoHandler creates a todo handler
func NewTodoHandler(svc *todo.Service) *TodoHandler {
	return &TodoHandler{todos: svc}
}

// ownerAndID reads the caller and the :id path parameter
func ownerAndID(ctx *web.FastRequestContext) (int64, int64, error) {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return 0, 0, err
	}
	id, err := ctx.ParamInt64("id")
	if err != nil {
		return 0, 0, err
	}
	return owner, id, nil
}

// Create handles POST /todos
func (h *TodoHandler) Create(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	var in todo.CreateInput
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}

	t, err := h.todos.Create(ctx.Context(), owner, in)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusCreated, todoOut(t))
}

// List handles GET /todos
func (h *TodoHandler) List(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	q, err := listQuery(ctx)
	if err != nil {
		return err
	}

	page, err := h.todos.List(ctx.Context(), owner, q)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, pageOut(page))
}

// Get handles GET /todos/:id
func (h *TodoHandler) Get(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	t, err := h.todos.Get(ctx.Context(), owner, id)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todoOut(t))
}

// Replace handles PUT /todos/:id
func (h *TodoHandler) Replace(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	var in todo.ReplaceInput
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}

	t, err := h.todos.Replace(ctx.Context(), owner, id, in)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todoOut(t))
}

// Patch handles PATCH /todos/:id
func (h *TodoHandler) Patch(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	var p todo.Patch
	if err := ctx.BindJSON(&p); err != nil {
		return err
	}

	t, err := h.todos.Patch(ctx.Context(), owner, id, p)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todoOut(t))
}

// Complete handles POST /todos/:id/complete
func (h *TodoHandler) Complete(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	t, err := h.todos.Complete(ctx.Context(), owner, id)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todoOut(t))
}

// Delete handles DELETE /todos/:id, a soft delete
func (h *TodoHandler) Delete(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	if err := h.todos.Delete(ctx.Context(), owner, id); err != nil {
		return err
	}
	return ctx.NoContent(fasthttp.StatusNoContent)
}

// Restore handles POST /todos/:id/restore
func (h *TodoHandler) Restore(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	t, err := h.todos.Restore(ctx.Context(), owner, id)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todoOut(t))
}

// HardDelete handles DELETE /todos/:id/permanent
func (h *TodoHandler) HardDelete(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	if err := h.todos.HardDelete(ctx.Context(), owner, id); err != nil {
		return err
	}
	return ctx.NoContent(fasthttp.StatusNoContent)
}

// Overdue handles GET /todos/overdue
func (h *TodoHandler) Overdue(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	items, err := h.todos.Overdue(ctx.Context(), owner)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todosOut(items))
}

// Today handles GET /todos/today
func (h *TodoHandler) Today(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	items, err := h.todos.DueToday(ctx.Context(), owner)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todosOut(items))
}

// Trash handles GET /todos/trash
func (h *TodoHandler) Trash(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	items, err := h.todos.Trash(ctx.Context(), owner)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, todosOut(items))
}
