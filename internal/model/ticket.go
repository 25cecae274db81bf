package model

import "time"

// Ticket is the immutable record of one booking.  In open mode the booker
// is identified by UserName/Email only; in auth mode UserID is set as well.
// TotalPriceCents is a snapshot of price × quantity at booking time.
type Ticket struct {
	ID              uint64    `json:"id"`                // tickets.id
	Reference       string    `json:"reference"`         // tickets.reference (uuid)
	ConcertID       uint64    `json:"concert_id"`        // tickets.concert_id
	UserID          *uint64   `json:"user_id,omitempty"` // tickets.user_id (nullable)
	UserName        string    `json:"user_name"`         // tickets.user_name
	Email           string    `json:"email"`             // tickets.email
	Quantity        int       `json:"quantity"`          // tickets.quantity
	TotalPriceCents int64     `json:"total_price_cents"` // tickets.total_price_cents
	TotalPrice      float64   `json:"total_price"`       // derived
	PurchaseDate    time.Time `json:"purchase_date"`     // tickets.purchase_date
}
