package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/concert-calendar/internal/logger"
)

const dialTimeout = 5 * time.Second

// Publisher sends booking events to RabbitMQ.  It dials per publish, so a
// broker that is down at startup does not need a reconnect loop here; the
// booking path treats every error as non-fatal.
type Publisher struct {
	url string
	log *logger.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *logger.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishTicketBooked publishes ev to the ticket.booked queue as a
// persistent JSON message whose MessageId is the ticket reference.
func (p *Publisher) PublishTicketBooked(ctx context.Context, ev TicketBookedEvent) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareTicketBooked(ch); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	pub, err := newPublishing(ev, time.Now())
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",                // default exchange
		TicketBookedQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		pub,
	); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// newPublishing encodes ev into a persistent AMQP message.
func newPublishing(ev TicketBookedEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.Reference,
		Type:         TicketBookedQueue,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

// declareTicketBooked makes sure the durable queue exists.  It is
// idempotent and shared by the publisher and the consumer.
func declareTicketBooked(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		TicketBookedQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	)
	return err
}
