package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/models"
	"github.com/fluxorio/todoapi/pkg/web"
)

// Authenticator resolves a bearer token to an active user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// BearerConfig configures bearer token authentication
type BearerConfig struct {
	// Authenticator resolves tokens (required)
	Authenticator Authenticator

	// UserKey is the key the user is stored under in the request context
	UserKey string

	// Header carries the credentials (default: Authorization)
	Header string

	// AuthScheme is the authorization scheme (default: "Bearer")
	AuthScheme string
}

// DefaultUserKey is where Bearer stores the authenticated user
const DefaultUserKey = "user"

// DefaultBearerConfig returns a configuration reading the Authorization header
func DefaultBearerConfig(authenticator Authenticator) BearerConfig {
	return BearerConfig{
		Authenticator: authenticator,
		UserKey:       DefaultUserKey,
		Header:        "Authorization",
		AuthScheme:    "Bearer",
	}
}

// Bearer middleware resolves the caller's token to a user and stores it in
// the request context. A missing or bad token is Unauthorized; the error
// handler adds WWW-Authenticate.
func Bearer(config BearerConfig) web.FastMiddleware {
	if config.Authenticator == nil {
		panic("Bearer: Authenticator must be provided")
	}

	userKey := config.UserKey
	if userKey == "" {
		userKey = DefaultUserKey
	}
	header := config.Header
	if header == "" {
		header = "Authorization"
	}
	authScheme := config.AuthScheme
	if authScheme == "" {
		authScheme = "Bearer"
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			scheme, token, ok := strings.Cut(strings.TrimSpace(ctx.Header(header)), " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, authScheme) || token == "" {
				return core.Unauthorized("Not authenticated")
			}

			user, err := config.Authenticator.Authenticate(ctx.Context(), token)
			if err != nil {
				return err
			}

			ctx.Set(userKey, user)
			return next(ctx)
		}
	}
}

// CurrentUser returns the user stored by Bearer under DefaultUserKey
func CurrentUser(ctx *web.FastRequestContext) (*models.User, error) {
	return UserFrom(ctx, DefaultUserKey)
}

// UserFrom returns the user stored under key
func UserFrom(ctx *web.FastRequestContext, key string) (*models.User, error) {
	user, ok := ctx.Get(key).(*models.User)
	if !ok || user == nil {
		return nil, core.Unauthorized("Not authenticated")
	}
	return user, nil
}

// OwnerID returns the authenticated user's id, the owner for scoped queries
func OwnerID(ctx *web.FastRequestContext) (int64, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	if user.ID <= 0 {
		return 0, core.Internal(fmt.Errorf("user id %d", user.ID), "invalid authenticated user")
	}
	return user.ID, nil
}
