package events

import (
	"context"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one received event
type Handler func(ctx context.Context, e Event) error

// Consume decodes deliveries and hands them to handle until ctx is done or the
// delivery channel closes. Deliveries are acked on success; failures are requeued
// only when handle reports a retryable error.
func Consume(ctx context.Context, deliveries <-chan amqp.Delivery, handle Handler, logger *slog.Logger) {
	logger.Info("Event consumer started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Event consumer stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				logger.Warn("RabbitMQ delivery channel closed")
				return
			}
			consumeOne(ctx, delivery, handle, logger)
		}
	}
}

func consumeOne(ctx context.Context, delivery amqp.Delivery, handle Handler, logger *slog.Logger) {
	e, err := Decode(delivery.Body)
	if err == nil {
		err = handle(ctx, e)
	}

	if err == nil {
		if ackErr := delivery.Ack(false); ackErr != nil {
			logger.Error("Failed to ACK message",
				slog.Uint64("delivery_tag", delivery.DeliveryTag),
				slog.Any("error", ackErr),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	logger.Error("Event handling failed",
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
		slog.Bool("requeue", requeue),
		slog.Any("error", err),
	)
	if nackErr := delivery.Nack(false, requeue); nackErr != nil {
		logger.Error("Failed to NACK message",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", nackErr),
		)
	}
}

func shouldRequeue(err error) bool {
	if errors.Is(err, ErrInvalidPayload) {
		return false
	}
	return IsRetryable(err)
}
