package api

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/todoapi/pkg/auth"
	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/validation"
	"github.com/fluxorio/todoapi/pkg/web"
	authmw "github.com/fluxorio/todoapi/pkg/web/middleware/auth"
)

// AuthHandler serves registration, login and the current user
type AuthHandler struct {
	auth *auth.Service
	now  func() time.Time
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc, now: time.Now}
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(ctx *web.FastRequestContext) error {
	var in auth.Credentials
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}

	user, err := h.auth.Register(ctx.Context(), in)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusCreated, userOut(user))
}

// Login handles POST /auth/login with a JSON body
func (h *AuthHandler) Login(ctx *web.FastRequestContext) error {
	var in loginInput
	if err := ctx.BindJSON(&in); err != nil {
		return err
	}
	return h.login(ctx, in)
}

// LoginForm handles POST /auth/login/form, the OAuth2 password form where
// username carries the email
func (h *AuthHandler) LoginForm(ctx *web.FastRequestContext) error {
	in := loginInput{
		Email:    ctx.FormValue("username"),
		Password: ctx.FormValue("password"),
	}
	if in.Email == "" {
		in.Email = ctx.FormValue("email")
	}
	return h.login(ctx, in)
}

func (h *AuthHandler) login(ctx *web.FastRequestContext, in loginInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	token, err := h.auth.Login(ctx.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(fasthttp.StatusOK, tokenOut(token, h.now()))
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(ctx *web.FastRequestContext) error {
	user, err := authmw.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return core.BadRequest("Inactive user")
	}
	return ctx.JSON(fasthttp.StatusOK, userOut(user))
}
