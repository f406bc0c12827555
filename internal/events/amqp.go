package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Broker is the publishing side of the RabbitMQ client
type Broker interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
	IsConnected() bool
}

var errBrokerDisconnected = errors.New("broker disconnected")

// AMQPPublisher publishes events as JSON, one routing key per event type
type AMQPPublisher struct {
	broker Broker
	logger *slog.Logger
}

// NewAMQPPublisher creates a publisher on top of broker
func NewAMQPPublisher(broker Broker, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{broker: broker, logger: logger}
}

// Publish implements Publisher
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if !p.broker.IsConnected() {
		return NewRetryableError(errBrokerDisconnected)
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.broker.PublishWithRetry(ctx, e.RoutingKey(), body, "application/json"); err != nil {
		return NewRetryableError(err)
	}
	return nil
}
