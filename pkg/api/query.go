package api

import (
	"strconv"
	"strings"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/todo"
	"github.com/fluxorio/todoapi/pkg/validation"
	"github.com/fluxorio/todoapi/pkg/web"
)

// listQuery reads is_done, q, sort, limit and offset. Present values are
// checked here; an absent limit becomes the service default.
func listQuery(ctx *web.FastRequestContext) (todo.ListQuery, error) {
	q := todo.ListQuery{
		Q:    strings.TrimSpace(ctx.Query("q")),
		Sort: strings.TrimSpace(ctx.Query("sort")),
	}

	if raw := ctx.Query("is_done"); raw != "" {
		v, err := parseBool(raw)
		if err != nil {
			return q, core.Validation("is_done: value could not be parsed to a boolean")
		}
		q.IsDone = &v
	}

	if ctx.HasQuery("limit") {
		limit, err := strconv.Atoi(ctx.Query("limit"))
		if err != nil {
			return q, core.Validation("limit: value is not a valid integer")
		}
		if err := validation.Var("limit", limit, "gte=1,lte=100"); err != nil {
			return q, err
		}
		q.Limit = limit
	}

	if ctx.HasQuery("offset") {
		offset, err := strconv.Atoi(ctx.Query("offset"))
		if err != nil {
			return q, core.Validation("offset: value is not a valid integer")
		}
		q.Offset = offset
	}
	return q, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}
