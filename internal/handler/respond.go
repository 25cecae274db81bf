package handler

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-calendar/internal/middleware"
	"github.com/iliyamo/concert-calendar/internal/service"
	"github.com/iliyamo/concert-calendar/internal/view"
)

// render answers JSON clients with body and everyone else with the named
// template wrapped in a view.Page.
func render(c echo.Context, status int, tmpl, title string, body any) error {
	if middleware.WantsJSON(c) || c.Echo().Renderer == nil {
		return c.JSON(status, body)
	}
	return c.Render(status, tmpl, view.Page{
		Title:       title,
		CurrentUser: middleware.CurrentUser(c),
		Body:        body,
	})
}

// concertIDParam parses the :concert_id path segment.  A malformed id is
// reported as not found, the same as an id that does not exist.
func concertIDParam(c echo.Context) (uint64, error) {
	raw := c.Param("concert_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("concert %q: %w", raw, service.ErrNotFound)
	}
	return id, nil
}

// bindForm binds the request into dst, reporting malformed input as a
// validation error.
func bindForm(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed form data", service.ErrValidation)
	}
	return nil
}
