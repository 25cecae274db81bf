package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-calendar/internal/middleware"
	"github.com/iliyamo/concert-calendar/internal/service"
)

// BookingHandler serves the booking form submission.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

// bookForm carries no validate tags and binds quantity as text: the service
// checks the fields only after confirming the concert exists, so a missing
// concert is always reported first.
type bookForm struct {
	Quantity string `form:"quantity" json:"quantity"`
	UserName string `form:"user_name" json:"user_name"`
	Email    string `form:"email" json:"email"`
}

// Book handles POST /book_ticket/:concert_id.  On success it redirects to
// the concert page with 303 and returns the ticket reference in the
// X-Ticket-Reference header.  In auth mode the booker is the signed-in
// user and the form's name and email are ignored.
func (h *BookingHandler) Book(c echo.Context) error {
	id, err := concertIDParam(c)
	if err != nil {
		return err
	}
	var f bookForm
	if err := bindForm(c, &f); err != nil {
		return err
	}

	booker := service.Booker{Name: f.UserName, Email: f.Email}
	if u := middleware.CurrentUser(c); u != nil {
		booker = service.Booker{UserID: &u.ID, Name: u.Username, Email: u.Email}
	}

	t, err := h.Bookings.BookTicket(c.Request().Context(), id, parseQuantity(f.Quantity), booker)
	if err != nil {
		return err
	}
	c.Response().Header().Set("X-Ticket-Reference", t.Reference)
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/concert/%d", id))
}

// parseQuantity maps anything that is not a whole number to 0, which the
// service rejects once it knows the concert exists.
func parseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
