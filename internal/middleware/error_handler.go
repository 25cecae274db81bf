package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/service"
	"github.com/iliyamo/concert-calendar/internal/view"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a service error to its HTTP status and stable error code.
// Unknown errors are internal errors.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInsufficientCapacity):
		return http.StatusBadRequest, "insufficient_capacity"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	}
	return http.StatusInternalServerError, "internal_error"
}

// WantsJSON reports whether the client asked for JSON rather than HTML.
func WantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// NewErrorHandler returns the central echo.HTTPErrorHandler.  Service
// errors map through StatusFor; echo's own HTTP errors keep their code.
// Internal errors are logged and their detail is never sent to clients.
// HTML clients get the error page when a renderer is configured.
func NewErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, kind := StatusFor(err)
		msg := ""
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			kind = strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_"))
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		case code == http.StatusInternalServerError:
			log.WithError(err).Error("request failed",
				"method", c.Request().Method, "path", c.Request().URL.Path)
			msg = "internal server error"
		default:
			msg = err.Error()
		}
		if code == http.StatusUnauthorized {
			c.Response().Header().Set("WWW-Authenticate", "Bearer")
		}

		body := ErrorBody{Error: kind, Message: msg}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else if !WantsJSON(c) && c.Echo().Renderer != nil {
			err = c.Render(code, "error.html", view.Page{
				Title:       http.StatusText(code),
				CurrentUser: CurrentUser(c),
				Body:        map[string]any{"Status": code, "Code": body.Error, "Message": body.Message},
			})
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.WithError(err).Error("writing error response failed")
		}
	}
}
