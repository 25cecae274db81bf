package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/queue"
	"github.com/iliyamo/concert-calendar/internal/repository"
)

// EventPublisher announces committed bookings to the message broker.
type EventPublisher interface {
	PublishTicketBooked(ctx context.Context, ev queue.TicketBookedEvent) error
}

// Booker identifies who is buying.  In auth mode UserID is set and Name
// and Email come from the account; in open mode they are free text.
type Booker struct {
	UserID *uint64
	Name   string
	Email  string
}

// BookingService decrements seat availability and records tickets.
type BookingService struct {
	db        *sql.DB
	concerts  *repository.ConcertRepo
	tickets   *repository.TicketRepo
	publisher EventPublisher
	cache     CacheInvalidator
	mode      config.Mode
	log       *logger.Logger
	now       func() time.Time
	newRef    func() string
}

// BookingDeps groups the collaborators of a BookingService.  Publisher and
// Cache are optional.
type BookingDeps struct {
	DB        *sql.DB
	Concerts  *repository.ConcertRepo
	Tickets   *repository.TicketRepo
	Publisher EventPublisher
	Cache     CacheInvalidator
	Mode      config.Mode
	Log       *logger.Logger
}

// NewBookingService constructs a BookingService.  DB, Concerts and Tickets
// must be non-nil.
func NewBookingService(d BookingDeps) *BookingService {
	if d.DB == nil || d.Concerts == nil || d.Tickets == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return &BookingService{
		db:        d.DB,
		concerts:  d.Concerts,
		tickets:   d.Tickets,
		publisher: d.Publisher,
		cache:     d.Cache,
		mode:      d.Mode,
		log:       d.Log,
		now:       time.Now,
		newRef:    func() string { return uuid.NewString() },
	}
}

// BookTicket books quantity seats of a concert for booker.  The seat
// decrement and the ticket insert commit together or not at all.  Errors
// are checked in order: ErrNotFound, ErrValidation (or ErrUnauthenticated
// in auth mode without a user), then ErrInsufficientCapacity.
func (s *BookingService) BookTicket(ctx context.Context, concertID uint64, quantity int, b Booker) (*model.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	concert, err := s.concerts.GetByIDTx(ctx, tx, concertID)
	if err != nil {
		if errors.Is(err, repository.ErrConcertNotFound) {
			return nil, fmt.Errorf("concert %d: %w", concertID, ErrNotFound)
		}
		return nil, err
	}
	if err := s.validate(quantity, &b); err != nil {
		return nil, err
	}
	if concert.PriceCents > 0 && int64(quantity) > math.MaxInt64/concert.PriceCents {
		return nil, fmt.Errorf("%w: total price is too large", ErrValidation)
	}
	if concert.AvailableSeats < quantity {
		return nil, fmt.Errorf("%w: only %d seats left", ErrInsufficientCapacity, concert.AvailableSeats)
	}
	ok, err := s.concerts.DecrementSeatsTx(ctx, tx, concertID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: seats were taken by another booking", ErrInsufficientCapacity)
	}

	t := &model.Ticket{
		Reference:       s.newRef(),
		ConcertID:       concertID,
		UserID:          b.UserID,
		UserName:        b.Name,
		Email:           b.Email,
		Quantity:        quantity,
		TotalPriceCents: concert.PriceCents * int64(quantity),
		PurchaseDate:    s.now(),
	}
	if err := s.tickets.CreateTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	concert.AvailableSeats -= quantity
	s.afterCommit(ctx, concert, t)
	return t, nil
}

// validate checks the request shape.  In auth mode the identity comes from
// the account, so only its presence is checked.
func (s *BookingService) validate(quantity int, b *Booker) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be a whole number of at least 1", ErrValidation)
	}
	if s.mode == config.ModeAuth {
		if b.UserID == nil {
			return fmt.Errorf("%w: sign in to book tickets", ErrUnauthenticated)
		}
		return nil
	}
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	if b.Name == "" || b.Email == "" {
		return fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return fmt.Errorf("%w: email address is invalid", ErrValidation)
	}
	return nil
}

const publishTimeout = 10 * time.Second

// afterCommit runs the side effects of a committed booking.  None of them
// can fail the booking; the event is published in the background.
func (s *BookingService) afterCommit(ctx context.Context, c *model.Concert, t *model.Ticket) {
	log := s.log.WithFields(map[string]any{
		"reference":  t.Reference,
		"concert_id": c.ID,
		"quantity":   t.Quantity,
	})
	log.Info("ticket booked")

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("calendar cache invalidation failed")
		}
	}
	if s.publisher != nil {
		ev := queue.TicketBookedEvent{
			Reference:       t.Reference,
			TicketID:        t.ID,
			ConcertID:       c.ID,
			ConcertTitle:    c.Title,
			Artist:          c.Artist,
			Venue:           c.Venue,
			StartsAt:        c.Date.UTC().Format(time.RFC3339),
			UserID:          t.UserID,
			UserName:        t.UserName,
			Email:           t.Email,
			Quantity:        t.Quantity,
			TotalPriceCents: t.TotalPriceCents,
			SeatsLeft:       c.AvailableSeats,
			BookedAt:        t.PurchaseDate.UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
			defer cancel()
			if err := s.publisher.PublishTicketBooked(pctx, ev); err != nil {
				log.WithError(err).Warn("ticket.booked publish failed")
			}
		}()
	}
}

// ListTickets returns the tickets of a concert.  A nil owner lists every
// ticket; otherwise only the owner's tickets are returned.
func (s *BookingService) ListTickets(ctx context.Context, concertID uint64, owner *uint64) ([]model.Ticket, error) {
	if owner == nil {
		return s.tickets.ListByConcert(ctx, concertID)
	}
	return s.tickets.ListByConcertAndUser(ctx, concertID, *owner)
}
