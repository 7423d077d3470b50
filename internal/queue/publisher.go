package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends RegistrationConfirmed messages.  Each publish opens its
// own connection; registrations are infrequent enough that a pooled
// connection is not worth its reconnect handling.
type Publisher struct {
	URL string
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// PublishRegistration marks the message persistent and routes it through
// the default exchange to RegistrationQueue.
func (p *Publisher) PublishRegistration(ctx context.Context, ev RegistrationConfirmed) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}

	return ch.PublishWithContext(ctx,
		"",                // default exchange
		RegistrationQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func declare(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(RegistrationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}
