package events

import (
	"context"

	"libretto/pkg/kafka"
	"libretto/pkg/logger"
	"libretto/pkg/model"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"

	schemaVersion = "1.0"
	sourceService = "bookings-service"
)

// Publisher emits booking lifecycle events. Publishing is best-effort:
// callers log failures and carry on, the booking write has already
// committed by the time an event goes out.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingUpdated(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
	BookingExpired(ctx context.Context, booking *model.Booking) error
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		logger:   log,
	}
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(booking).
		WithEventType(eventType).
		WithSchemaVersion(schemaVersion).
		WithSource(sourceService).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
		return err
	}

	return nil
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCreated, booking)
}

func (p *kafkaPublisher) BookingUpdated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingUpdated, booking)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCancelled, booking)
}

func (p *kafkaPublisher) BookingExpired(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingExpired, booking)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when no events topic is configured.
type NoopPublisher struct{}

func NewNoopPublisher() Publisher {
	return NoopPublisher{}
}

func (NoopPublisher) BookingCreated(context.Context, *model.Booking) error   { return nil }
func (NoopPublisher) BookingUpdated(context.Context, *model.Booking) error   { return nil }
func (NoopPublisher) BookingCancelled(context.Context, *model.Booking) error { return nil }
func (NoopPublisher) BookingExpired(context.Context, *model.Booking) error   { return nil }
func (NoopPublisher) Close() error                                           { return nil }
