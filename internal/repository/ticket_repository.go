package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/concert-calendar/internal/model"
)

// TicketRepo persists booking records.  Tickets are append-only: there is
// no update or delete.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, reference, concert_id, user_id, user_name, email, quantity, total_price_cents, purchase_date`

// CreateTx inserts a ticket within the scope of an existing transaction
// and populates the generated ID.  The caller must commit or roll back.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	t.PurchaseDate = t.PurchaseDate.UTC().Truncate(time.Second)
	var userID sql.NullInt64
	if t.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*t.UserID), Valid: true}
	}
	const q = `INSERT INTO tickets (reference, concert_id, user_id, user_name, email, quantity, total_price_cents, purchase_date)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		t.Reference, t.ConcertID, userID, t.UserName, t.Email, t.Quantity, t.TotalPriceCents, t.PurchaseDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.TotalPrice = model.CentsToUnits(t.TotalPriceCents)
	return nil
}

// ListByConcert returns every ticket booked for a concert, oldest first.
func (r *TicketRepo) ListByConcert(ctx context.Context, concertID uint64) ([]model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE concert_id = ? ORDER BY id ASC`, concertID)
}

// ListByConcertAndUser returns only the tickets the given user booked for
// a concert.
func (r *TicketRepo) ListByConcertAndUser(ctx context.Context, concertID, userID uint64) ([]model.Ticket, error) {
	return r.list(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE concert_id = ? AND user_id = ? ORDER BY id ASC`,
		concertID, userID)
}

// CountByConcert returns the number of tickets recorded for a concert.
func (r *TicketRepo) CountByConcert(ctx context.Context, concertID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE concert_id = ?`, concertID).Scan(&n)
	return n, err
}

func (r *TicketRepo) list(ctx context.Context, query string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Ticket{}
	for rows.Next() {
		var (
			t      model.Ticket
			userID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Reference, &t.ConcertID, &userID, &t.UserName, &t.Email,
			&t.Quantity, &t.TotalPriceCents, &t.PurchaseDate); err != nil {
			return nil, err
		}
		if userID.Valid {
			uid := uint64(userID.Int64)
			t.UserID = &uid
		}
		t.PurchaseDate = t.PurchaseDate.UTC()
		t.TotalPrice = model.CentsToUnits(t.TotalPriceCents)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
