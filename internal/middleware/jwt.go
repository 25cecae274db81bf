package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"fmt"
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/service"
)

// AccessTokenCookie is the cookie the login flow stores the token in so
// browser form posts are authenticated without script.
const AccessTokenCookie = "access_token"

const (
	userKey      = "user"
	authErrorKey = "auth_error"
)

// UserResolver maps a raw bearer token to its user.
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Authenticate returns an Echo middleware that resolves the caller from a
// Bearer Authorization header or, failing that, the access_token cookie.
// A resolved user is stored in the context for CurrentUser.  Requests
// without a token continue anonymously; a token that fails to resolve is
// remembered so RequireUser can reject with the precise reason, while
// public pages still render for an anonymous visitor.
func Authenticate(resolver UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return next(c)
			}
			u, err := resolver.ResolveCurrentUser(c.Request().Context(), raw)
			if err != nil {
				c.Set(authErrorKey, err)
				return next(c)
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

// RequireUser rejects the request with 401 unless Authenticate resolved a
// user.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) != nil {
			return next(c)
		}
		if err, ok := c.Get(authErrorKey).(error); ok {
			return err
		}
		return fmt.Errorf("%w: not authenticated", service.ErrUnauthenticated)
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous
// requests.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// bearerToken extracts the raw token from the Authorization header
// ("Bearer <jwt>") or the access_token cookie.
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if ck, err := c.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimPrefix(ck.Value, "Bearer ")
	}
	return ""
}

// hasCredentials reports whether the request carries any token, valid or
// not.  Such responses are personalised and must not be cached.
func hasCredentials(c echo.Context) bool {
	return bearerToken(c) != ""
}
