package router // package router defines how HTTP routes are registered for the application

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/concert-calendar/internal/handler"    // import the handlers that implement the pages and forms
	"github.com/iliyamo/concert-calendar/internal/middleware" // import middleware for authentication
)

// RegisterRoutes registers the probes that do not touch application state
// beyond a database ping.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	// /healthz answers as long as the process is up; /readyz also needs the database.
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers the calendar, detail and add-concert routes.
// cache wraps the calendar page only; limiter guards the write route.
func RegisterPublic(e *echo.Echo, h *handler.ConcertHandler, cache, limiter echo.MiddlewareFunc) {
	e.GET("/", h.Calendar, cache)
	e.GET("/concert/:concert_id", h.Detail)
	e.GET("/add_concert", h.AddConcertForm)
	e.POST("/add_concert", h.AddConcert, limiter)
}

// RegisterBooking registers the booking route.  With requireUser set the
// caller must present a valid access token.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, limiter echo.MiddlewareFunc, requireUser bool) {
	mws := []echo.MiddlewareFunc{limiter}
	if requireUser {
		mws = append([]echo.MiddlewareFunc{middleware.RequireUser}, mws...)
	}
	e.POST("/book_ticket/:concert_id", b.Book, mws...)
}

// RegisterAuth registers the account routes of the auth deployment.  The
// Authenticate middleware must already be installed on e.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	e.GET("/login", a.LoginPage)
	e.GET("/register", a.RegisterPage)
	e.POST("/register", a.Register, limiter)
	e.POST("/token", a.Token, limiter)
	e.GET("/users/me", a.Me, middleware.RequireUser)
}
