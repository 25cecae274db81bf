// Package queue contains the RabbitMQ publisher and the background consumer
// that listens to the ticket.booked queue and appends one line per booking
// to logs/booking.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/concert-calendar/internal/logger"
)

// BookingLogFile is the file name the consumer appends to inside its
// log directory.
const BookingLogFile = "booking.log"

// StartBookingConsumer connects to RabbitMQ, declares the ticket.booked
// queue and consumes it until ctx is cancelled.  Each message is appended
// to dir/booking.log.  Broker failures are retried with exponential
// backoff; the function only returns when ctx is done.
func StartBookingConsumer(ctx context.Context, url, dir string, log *logger.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warn("booking-consumer: failed to dial broker", "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, dir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, log *logger.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("booking-consumer: set QoS failed")
	}
	if err := declareTicketBooked(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, TicketBookedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(dir, d.Body); err != nil {
			log.WithError(err).Error("booking-consumer: handle message failed", "message_id", d.MessageId)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage decodes one event and appends its log line.
func handleMessage(dir string, body []byte) error {
	var ev TicketBookedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Reference == "" || ev.ConcertID == 0 {
		return errors.New("event missing reference or concert_id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, BookingLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev TicketBookedEvent) string {
	user := "-"
	if ev.UserID != nil {
		user = fmt.Sprintf("%d", *ev.UserID)
	}
	return fmt.Sprintf("[%s] Ticket booked | reference=%s | concert_id=%d | concert=%q | artist=%q | venue=%q | starts_at=%s | user_id=%s | name=%q | email=%s | quantity=%d | total=%d cents | seats_left=%d\n",
		ev.BookedAt, ev.Reference, ev.ConcertID, ev.ConcertTitle, ev.Artist, ev.Venue, ev.StartsAt,
		user, ev.UserName, ev.Email, ev.Quantity, ev.TotalPriceCents, ev.SeatsLeft)
}
