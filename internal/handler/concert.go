package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/middleware"
	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/service"
)

// ConcertHandler serves the calendar, concert details and the form for
// adding concerts.
type ConcertHandler struct {
	Concerts *service.ConcertService
	Bookings *service.BookingService
	Mode     config.Mode
}

// NewConcertHandler constructs a ConcertHandler.  Both services must be
// non-nil.
func NewConcertHandler(concerts *service.ConcertService, bookings *service.BookingService, mode config.Mode) *ConcertHandler {
	if concerts == nil || bookings == nil {
		panic("nil service passed to NewConcertHandler")
	}
	return &ConcertHandler{Concerts: concerts, Bookings: bookings, Mode: mode}
}

type calendarQuery struct {
	Year   int    `query:"year"`
	Month  int    `query:"month"`
	Search string `query:"search"`
}

// Calendar handles GET /.  year and month default to the current month;
// search filters by title, artist or venue.
func (h *ConcertHandler) Calendar(c echo.Context) error {
	var q calendarQuery
	if err := bindForm(c, &q); err != nil {
		return err
	}
	page, err := h.Concerts.Calendar(c.Request().Context(), q.Year, q.Month, q.Search)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "calendar.html", strconv.Itoa(page.Year)+"/"+strconv.Itoa(page.Month), page)
}

// concertDetail is the payload of GET /concert/:concert_id.
type concertDetail struct {
	Concert *model.Concert `json:"concert"`
	Tickets []model.Ticket `json:"tickets"`
}

// Detail handles GET /concert/:concert_id.  In open mode every ticket of
// the concert is listed; in auth mode only the caller's own, and none for
// anonymous visitors.
func (h *ConcertHandler) Detail(c echo.Context) error {
	id, err := concertIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	concert, err := h.Concerts.GetConcert(ctx, id)
	if err != nil {
		return err
	}

	tickets := []model.Ticket{}
	switch {
	case h.Mode != config.ModeAuth:
		tickets, err = h.Bookings.ListTickets(ctx, id, nil)
	case middleware.CurrentUser(c) != nil:
		tickets, err = h.Bookings.ListTickets(ctx, id, &middleware.CurrentUser(c).ID)
	}
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, "concert_detail.html", concert.Title,
		concertDetail{Concert: concert, Tickets: tickets})
}

// AddConcertForm handles GET /add_concert.
func (h *ConcertHandler) AddConcertForm(c echo.Context) error {
	return render(c, http.StatusOK, "add_concert.html", "Add concert", echo.Map{})
}

type addConcertForm struct {
	Title          string `form:"title" json:"title" validate:"required,max=200"`
	Artist         string `form:"artist" json:"artist" validate:"required,max=200"`
	Date           string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Time           string `form:"time" json:"time" validate:"required,datetime=15:04"`
	Venue          string `form:"venue" json:"venue" validate:"required,max=200"`
	Description    string `form:"description" json:"description" validate:"max=5000"`
	Price          string `form:"price" json:"price" validate:"required"`
	AvailableSeats int    `form:"available_seats" json:"available_seats" validate:"min=0"`
}

// AddConcert handles POST /add_concert and redirects to the calendar.  The
// new concert's id is returned in the X-Concert-ID header.
func (h *ConcertHandler) AddConcert(c echo.Context) error {
	var f addConcertForm
	if err := bindForm(c, &f); err != nil {
		return err
	}
	if err := c.Validate(&f); err != nil {
		return err
	}
	concert, err := h.Concerts.AddConcert(c.Request().Context(), service.AddConcertInput{
		Title:          f.Title,
		Artist:         f.Artist,
		Date:           f.Date,
		Time:           f.Time,
		Venue:          f.Venue,
		Description:    f.Description,
		Price:          f.Price,
		AvailableSeats: f.AvailableSeats,
	})
	if err != nil {
		return err
	}
	c.Response().Header().Set("X-Concert-ID", strconv.FormatUint(concert.ID, 10))
	return c.Redirect(http.StatusSeeOther, "/")
}
