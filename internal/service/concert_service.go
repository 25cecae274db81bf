package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/concert-calendar/internal/calendar"
	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/repository"
)

// CacheInvalidator drops cached calendar pages after a write changed what
// they show.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ConcertService answers calendar and detail queries and records new
// concerts.
type ConcertService struct {
	concerts *repository.ConcertRepo
	cache    CacheInvalidator
	log      *logger.Logger
	now      func() time.Time
}

// NewConcertService wires the service.  cache may be nil.
func NewConcertService(concerts *repository.ConcertRepo, cache CacheInvalidator, log *logger.Logger) *ConcertService {
	if log == nil {
		log = logger.Discard()
	}
	return &ConcertService{concerts: concerts, cache: cache, log: log, now: time.Now}
}

// ListConcerts returns the concerts starting within the given month.  A
// non-empty search keeps only those whose title, artist or venue contains
// it, ignoring case.
func (s *ConcertService) ListConcerts(ctx context.Context, year, month int, search string) ([]model.Concert, error) {
	start, end := calendar.Window(year, month)
	return s.concerts.Search(ctx, repository.ConcertSearchQuery{From: start, To: end, Term: search})
}

// GroupByDay buckets concerts by day of month, keeping their relative
// order.  All concerts are expected to fall in the same month.
func GroupByDay(concerts []model.Concert) map[int][]model.Concert {
	out := make(map[int][]model.Concert)
	for _, c := range concerts {
		d := c.Date.Day()
		out[d] = append(out[d], c)
	}
	return out
}

// CalendarPage is everything the month view needs.
type CalendarPage struct {
	Year          int                     `json:"year"`
	Month         int                     `json:"month"`
	MonthName     string                  `json:"month_name"`
	MonthLabel    string                  `json:"month_label"`
	Weeks         []calendar.Week         `json:"weeks"`
	ConcertsByDay map[int][]model.Concert `json:"concerts_by_day"`
	PrevYear      int                     `json:"prev_year"`
	PrevMonth     int                     `json:"prev_month"`
	NextYear      int                     `json:"next_year"`
	NextMonth     int                     `json:"next_month"`
	Search        string                  `json:"search"`
}

// Calendar builds the month view.  A zero year or month defaults to the
// current one; an out-of-range month rolls over into the adjacent year.
func (s *ConcertService) Calendar(ctx context.Context, year, month int, search string) (*CalendarPage, error) {
	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	year, month = calendar.Normalize(year, month)
	search = strings.TrimSpace(search)

	concerts, err := s.ListConcerts(ctx, year, month, search)
	if err != nil {
		return nil, err
	}
	py, pm := calendar.Prev(year, month)
	ny, nm := calendar.Next(year, month)
	return &CalendarPage{
		Year:          year,
		Month:         month,
		MonthName:     calendar.MonthName(month),
		MonthLabel:    calendar.MonthLabel(month),
		Weeks:         calendar.Month(year, month),
		ConcertsByDay: GroupByDay(concerts),
		PrevYear:      py,
		PrevMonth:     pm,
		NextYear:      ny,
		NextMonth:     nm,
		Search:        search,
	}, nil
}

// GetConcert returns one concert or ErrNotFound.
func (s *ConcertService) GetConcert(ctx context.Context, id uint64) (*model.Concert, error) {
	c, err := s.concerts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrConcertNotFound) {
		return nil, fmt.Errorf("concert %d: %w", id, ErrNotFound)
	}
	return c, err
}

// AddConcertInput is the raw form submission for a new concert.  Date is
// "YYYY-MM-DD", Time is "HH:MM" (UTC) and Price is a decimal amount.
type AddConcertInput struct {
	Title          string
	Artist         string
	Date           string
	Time           string
	Venue          string
	Description    string
	Price          string
	AvailableSeats int
}

const concertDateLayout = "2006-01-02 15:04"

// AddConcert validates the input, stores the concert and invalidates the
// cached calendar pages.
func (s *ConcertService) AddConcert(ctx context.Context, in AddConcertInput) (*model.Concert, error) {
	title := strings.TrimSpace(in.Title)
	artist := strings.TrimSpace(in.Artist)
	venue := strings.TrimSpace(in.Venue)
	if title == "" || artist == "" || venue == "" {
		return nil, fmt.Errorf("%w: title, artist and venue are required", ErrValidation)
	}
	at, err := time.ParseInLocation(concertDateLayout,
		strings.TrimSpace(in.Date)+" "+strings.TrimSpace(in.Time), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD and time HH:MM", ErrValidation)
	}
	cents, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if in.AvailableSeats < 0 {
		return nil, fmt.Errorf("%w: available seats cannot be negative", ErrValidation)
	}

	c := &model.Concert{
		Title:          title,
		Artist:         artist,
		Date:           at,
		Venue:          venue,
		Description:    strings.TrimSpace(in.Description),
		PriceCents:     cents,
		AvailableSeats: in.AvailableSeats,
		CreatedAt:      s.now(),
	}
	if err := s.concerts.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("concert added", "concert_id", c.ID, "date", c.Date.Format(time.RFC3339))
	return c, nil
}

func (s *ConcertService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("calendar cache invalidation failed")
	}
}

// ParsePrice converts a plain decimal amount such as "50", "49.9" or
// "49.99" into cents.  Signs, exponents, hex and more than two decimals are
// rejected, as are amounts that do not fit in int64 cents.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: price is required", ErrValidation)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if (whole == "" && frac == "") || !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("%w: price must be a plain decimal number", ErrValidation)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: price has more than two decimals", ErrValidation)
	}
	units := int64(0)
	if whole != "" {
		n, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: price is too large", ErrValidation)
		}
		units = n
	}
	cents := int64(0)
	if frac != "" {
		n, _ := strconv.ParseInt(frac, 10, 64)
		if len(frac) == 1 {
			n *= 10
		}
		cents = n
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("%w: price is too large", ErrValidation)
	}
	return units*100 + cents, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
