package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/concert-calendar/internal/model"
)

// ConcertRepo manages persistence for concerts.
type ConcertRepo struct {
	db *sql.DB
}

// NewConcertRepo constructs a ConcertRepo with the given DB handle.
func NewConcertRepo(db *sql.DB) *ConcertRepo {
	return &ConcertRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions that
// span the concert and ticket repositories.
func (r *ConcertRepo) DB() *sql.DB {
	return r.db
}

const concertColumns = `id, title, artist, starts_at, venue, description, price_cents, available_seats, created_at`

// Create inserts a new concert and assigns the generated ID.  Date and
// CreatedAt are stored in UTC with second precision.
func (r *ConcertRepo) Create(ctx context.Context, c *model.Concert) error {
	c.Date = c.Date.UTC().Truncate(time.Second)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Second)

	const q = `INSERT INTO concerts (title, artist, starts_at, venue, description, price_cents, available_seats, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		c.Title, c.Artist, c.Date, c.Venue, c.Description, c.PriceCents, c.AvailableSeats, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.Price = model.CentsToUnits(c.PriceCents)
	return nil
}

// GetByID retrieves a concert by its ID.  It returns ErrConcertNotFound if
// there is no matching row.
func (r *ConcertRepo) GetByID(ctx context.Context, id uint64) (*model.Concert, error) {
	return scanConcert(r.db.QueryRowContext(ctx, `SELECT `+concertColumns+` FROM concerts WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *ConcertRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Concert, error) {
	return scanConcert(tx.QueryRowContext(ctx, `SELECT `+concertColumns+` FROM concerts WHERE id = ?`, id))
}

// DecrementSeatsTx subtracts qty from the concert's available seats only
// if enough remain.  The guard lives in the UPDATE itself so concurrent
// bookings serialize on the row and can never drive the counter below
// zero.  It reports false when the guard rejected the update.
func (r *ConcertRepo) DecrementSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) (bool, error) {
	const q = `UPDATE concerts SET available_seats = available_seats - ? WHERE id = ? AND available_seats >= ?`
	res, err := tx.ExecContext(ctx, q, qty, id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcert(row rowScanner) (*model.Concert, error) {
	var c model.Concert
	err := row.Scan(&c.ID, &c.Title, &c.Artist, &c.Date, &c.Venue, &c.Description,
		&c.PriceCents, &c.AvailableSeats, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConcertNotFound
		}
		return nil, err
	}
	c.Date = c.Date.UTC()
	c.Price = model.CentsToUnits(c.PriceCents)
	return &c, nil
}
