// Package events publishes shipment activity to a RabbitMQ topic exchange so
// downstream consumers (pricing, analytics) can react to new postings without
// polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/otabekdev/yukmonitor/internal/database"
)

// Routing keys under the configured exchange.
const (
	KeyShipmentCreated = "shipment.created"
	KeyShipmentUpdated = "shipment.updated"
)

// Meta identifies one published event.
type Meta struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Source     string    `json:"source"`
}

// ShipmentEvent is the payload for shipment.* routing keys.
type ShipmentEvent struct {
	Meta Meta `json:"meta"`

	ShipmentID  uint    `json:"shipment_id"`
	MessageID   uint    `json:"message_id"`
	Origin      *string `json:"origin"`
	Destination *string `json:"destination"`
	CargoType   *string `json:"cargo_type"`
	TruckType   *string `json:"truck_type"`
	PaymentType *string `json:"payment_type"`
	Phone       *string `json:"phone"`
}

// Publisher sends shipment events to a topic exchange. A nil *Publisher is a
// valid no-op sink, so callers can wire it unconditionally.
type Publisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *slog.Logger
}

// NewPublisher connects to RabbitMQ and declares the topic exchange. The
// channel used for declaration is put into confirm mode to fail fast on
// broker misconfiguration.
func NewPublisher(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable confirm mode: %w", err)
	}

	logger.Info("Event publisher connected", "exchange", exchange)

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger.With("component", "events"),
	}, nil
}

// ShipmentUpserted publishes a shipment.created or shipment.updated event.
func (p *Publisher) ShipmentUpserted(ctx context.Context, shipment *database.Shipment, created bool) error {
	if p == nil {
		return nil
	}

	key := KeyShipmentUpdated
	if created {
		key = KeyShipmentCreated
	}

	event := ShipmentEvent{
		Meta: Meta{
			ID:         uuid.NewString(),
			OccurredAt: time.Now().UTC(),
			Source:     "yukmonitor",
		},
		ShipmentID:  shipment.ID,
		MessageID:   shipment.MessageID,
		Origin:      optional(shipment.Origin.String, shipment.Origin.Valid),
		Destination: optional(shipment.Destination.String, shipment.Destination.Valid),
		CargoType:   optional(shipment.CargoType.String, shipment.CargoType.Valid),
		TruckType:   optional(shipment.TruckType.String, shipment.TruckType.Valid),
		PaymentType: optional(shipment.PaymentType.String, shipment.PaymentType.Valid),
		Phone:       optional(shipment.Phone.String, shipment.Phone.Valid),
	}

	return p.publish(ctx, key, event)
}

func (p *Publisher) publish(ctx context.Context, key string, event ShipmentEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.Meta.ID,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}

	p.logger.DebugContext(ctx, "Event published", "key", key, "event_id", event.Meta.ID)
	return nil
}

// Close shuts down the underlying connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.conn.Close()
}

func optional(s string, valid bool) *string {
	if !valid {
		return nil
	}
	return &s
}
