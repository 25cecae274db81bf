// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketBookedQueue is the durable queue booking events are published to.
const TicketBookedQueue = "ticket.booked"

// TicketBookedEvent is published after a booking transaction commits.  It
// carries enough of the concert and ticket for downstream consumers to
// log or notify without querying the primary database.
type TicketBookedEvent struct {
	Reference       string  `json:"reference"`
	TicketID        uint64  `json:"ticket_id"`
	ConcertID       uint64  `json:"concert_id"`
	ConcertTitle    string  `json:"concert_title"`
	Artist          string  `json:"artist"`
	Venue           string  `json:"venue"`
	StartsAt        string  `json:"starts_at"`
	UserID          *uint64 `json:"user_id,omitempty"`
	UserName        string  `json:"user_name"`
	Email           string  `json:"email"`
	Quantity        int     `json:"quantity"`
	TotalPriceCents int64   `json:"total_price_cents"`
	SeatsLeft       int     `json:"seats_left"`
	BookedAt        string  `json:"booked_at"`
}
