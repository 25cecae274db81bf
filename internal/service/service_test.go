package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/queue"
	"github.com/iliyamo/concert-calendar/internal/repository"
	"github.com/iliyamo/concert-calendar/internal/testutil"
)

// fakeCache counts invalidations.
type fakeCache struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeCache) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakePublisher forwards published events to a buffered channel.
type fakePublisher struct {
	events chan queue.TicketBookedEvent
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(chan queue.TicketBookedEvent, 16)}
}

func (f *fakePublisher) PublishTicketBooked(_ context.Context, ev queue.TicketBookedEvent) error {
	f.events <- ev
	return nil
}

type fixture struct {
	db        *sql.DB
	concerts  *repository.ConcertRepo
	tickets   *repository.TicketRepo
	users     *repository.UserRepo
	cache     *fakeCache
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	return &fixture{
		db:        db,
		concerts:  repository.NewConcertRepo(db),
		tickets:   repository.NewTicketRepo(db),
		users:     repository.NewUserRepo(db),
		cache:     &fakeCache{},
		publisher: newFakePublisher(),
	}
}

func (f *fixture) bookingService(mode config.Mode) *BookingService {
	return NewBookingService(BookingDeps{
		DB:        f.db,
		Concerts:  f.concerts,
		Tickets:   f.tickets,
		Publisher: f.publisher,
		Cache:     f.cache,
		Mode:      mode,
		Log:       logger.Discard(),
	})
}

func (f *fixture) concert(t *testing.T, at time.Time, priceCents int64, seats int) *model.Concert {
	t.Helper()
	c := &model.Concert{
		Title:          "Summer Fest",
		Artist:         "Band A",
		Venue:          "Arena",
		Date:           at,
		PriceCents:     priceCents,
		AvailableSeats: seats,
	}
	require.NoError(t, f.concerts.Create(context.Background(), c))
	return c
}
