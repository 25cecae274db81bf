package middleware

// identity.go defines helper functions shared across middleware files. It
// provides the caller identity used to key rate limits: the username of
// the authenticated user, or "anon" for open-mode and anonymous requests.

import "github.com/labstack/echo/v4"

// callerID returns the username resolved by Authenticate, or "anon".
func callerID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.Username != "" {
		return u.Username
	}
	return "anon"
}
