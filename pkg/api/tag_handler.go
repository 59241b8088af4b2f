package api

import (
	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/tag"
	"github.com/fluxorio/todoapi/pkg/web"
	authmw "github.com/fluxorio/todoapi/pkg/web/middleware/auth"
)

// TagHandler serves the /tags routes
type TagHandler struct {
	tags *tag.Service
}

// NewTagHandler creates a tag handler
func NewTagHandler(svc *tag.Service) *TagHandler {
	return &TagHandler{tags: svc}
}

func (h *TagHandler) Create(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	var in tag.Input
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}
	t, err := h.tags.Create(ctx.Context(), owner, in)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusCreated, tagOut(t))
}

func (h *TagHandler) List(ctx *web.FastRequestContext) error {
	owner, err := authmw.OwnerID(ctx)
	if err != nil {
		return err
	}
	tags, err := h.tags.List(ctx.Context(), owner)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, tagsOut(tags))
}

func (h *TagHandler) Get(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	t, err := h.tags.Get(ctx.Context(), owner, id)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, tagOut(t))
}

func (h *TagHandler) Update(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	var in tag.Input
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}
	t, err := h.tags.Update(ctx.Context(), owner, id, in)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, tagOut(t))
}

func (h *TagHandler) Delete(ctx *web.FastRequestContext) error {
	owner, id, err := ownerAndID(ctx)
	if err != nil {
		return err
	}
	if err := h.tags.Delete(ctx.Context(), owner, id); err != nil {
		return err
	}
	return ctx.NoContent(fasthttp.StatusNoContent)
}
