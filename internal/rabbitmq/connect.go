// Package rabbitmq connects to the broker, declares the notification topology
// and runs queue consumers.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const (
	NotificationsExchange = "notifications"
	prefetchCount         = 10
)

// Connect dials url, retrying up to retries times with delay between attempts.
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	if retries < 1 {
		retries = 1
	}
	for attempt := range retries {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		if attempt < retries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel opens a channel, declares the durable direct notifications
// exchange and binds every queue to it.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fail := func(err error) (*amqp.Channel, error) {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fail(fmt.Errorf("failed to set QoS: %w", err))
	}
	if err := ch.ExchangeDeclare(NotificationsExchange, "direct", true, false, false, false, nil); err != nil {
		return fail(err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("failed to declare queue %s: %w", q.QueueName, err))
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, NotificationsExchange, false, nil); err != nil {
			return fail(fmt.Errorf("failed to bind queue %s with routing key %s: %w", q.QueueName, q.RoutingKey, err))
		}
	}

	return ch, nil
}
