package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends lifecycle events with a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
	Close() error
}

// RabbitPublisher publishes events to a durable RabbitMQ topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   zerolog.Logger
}

// NewRabbitPublisher connects to the broker and declares the exchange.
func NewRabbitPublisher(url string, logger zerolog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().Str("exchange", ExchangeName).Msg("connected to RabbitMQ")

	return &RabbitPublisher{
		conn:     conn,
		channel:  channel,
		exchange: ExchangeName,
		logger:   logger,
	}, nil
}

// Publish marshals the event and publishes it with the given routing key.
// Messages are persistent so the broker survives restarts without loss.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	if p == nil || p.channel == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key (e.g., "plan.completed")
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    uuid.New().String(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", routingKey, err)
	}

	p.logger.Debug().Str("routing_key", routingKey).Msg("published event")
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("error closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops all events. It is wired when RABBITMQ_URL is unset so
// callers never need a nil check.
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(_ context.Context, _ string, _ interface{}) error {
	return nil
}

// Close is a no-op.
func (NoopPublisher) Close() error {
	return nil
}
