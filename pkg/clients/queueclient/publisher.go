// Package queueclient publishes schedule lifecycle events to RabbitMQ so that
// downstream consumers (mailers, dashboards) can react to new drafts and publications.
package queueclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultPublishTimeout bounds a single publish call
const DefaultPublishTimeout = 5 * time.Second

// EventType names a schedule lifecycle event
type EventType string

const (
	EventScheduleGenerated EventType = "schedule.generated"
	EventSchedulePublished EventType = "schedule.published"
)

// Event is the JSON message body sent for every schedule lifecycle change
type Event struct {
	Type           EventType `json:"type"`
	ScheduleID     string    `json:"scheduleId"`
	Horizon        string    `json:"horizon"`
	PeriodKey      string    `json:"periodKey"`
	IsValid        bool      `json:"isValid"`
	HardViolations int       `json:"hardViolations"`
	SoftViolations int       `json:"softViolations"`
	CoverageRate   float64   `json:"coverageRate"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// channel is the subset of *amqp.Channel used by the publisher
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to a durable queue on the default exchange
type Publisher struct {
	conn    *amqp.Connection
	ch      channel
	queue   string
	timeout time.Duration
}

// NewPublisher dials RabbitMQ and declares the durable event queue
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &Publisher{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		timeout: DefaultPublishTimeout,
	}, nil
}

// Publish sends an event as a persistent JSON message
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(event.Type),
		MessageId:    event.ScheduleID + ":" + string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("failed to close rabbitmq channel: %w", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close rabbitmq connection: %w", err)
		}
	}
	return nil
}
