package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/solvix/solvix-devis/internal/lib/sl"
)

const maxInFlight = 10

// ErrPermanent marks a handler failure that a redelivery cannot fix. Such
// messages are rejected without requeue.
var ErrPermanent = errors.New("permanent failure")

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage starts consuming queueName with manual acknowledgements.
// Successful deliveries are acked; failed ones are nacked and requeued unless
// the error wraps ErrPermanent. It returns once the consumer is registered.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(sl.Op(op), slog.String("queue", queueName))
	sem := make(chan struct{}, maxInFlight)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					process(ctx, log, d.Body, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Acknowledger is the settlement side of a delivery.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func process(ctx context.Context, log *slog.Logger, body []byte, ack Acknowledger, handler Handler) {
	err := handler(ctx, body)
	if err == nil {
		if ackErr := ack.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
		return
	}

	requeue := !errors.Is(err, ErrPermanent)
	log.Warn("message handling failed", slog.Bool("requeue", requeue), sl.Err(err))
	if nackErr := ack.Nack(false, requeue); nackErr != nil {
		log.Error("failed to nack message", sl.Err(nackErr))
	}
}
