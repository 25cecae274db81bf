package model

import "time"

// Concert represents a scheduled performance with a price and a seat
// capacity.  AvailableSeats is the authoritative remaining capacity and is
// only ever decremented by a booking.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – name of the event.
//  Artist         – performing artist(s).
//  Date           – when the concert starts (UTC).
//  Venue          – where it takes place.
//  Description    – free text.
//  PriceCents     – price of one ticket in cents.
//  Price          – PriceCents in whole currency units, for display.
//  AvailableSeats – remaining seats, never negative.
//  CreatedAt      – creation timestamp.
type Concert struct {
	ID             uint64    `json:"id"`              // concerts.id
	Title          string    `json:"title"`           // concerts.title
	Artist         string    `json:"artist"`          // concerts.artist
	Date           time.Time `json:"date"`            // concerts.starts_at
	Venue          string    `json:"venue"`           // concerts.venue
	Description    string    `json:"description"`     // concerts.description
	PriceCents     int64     `json:"price_cents"`     // concerts.price_cents
	Price          float64   `json:"price"`           // derived
	AvailableSeats int       `json:"available_seats"` // concerts.available_seats
	CreatedAt      time.Time `json:"created_at"`      // concerts.created_at
}
