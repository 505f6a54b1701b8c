// RabbitMQ realization of the Broker interface, generalized from the
// teacher's internal/queue/queue.go (single hardcoded order_queue, one
// Publisher and one Consumer type) to arbitrary topics sharing one
// connection, with durable per-topic queues, persistent delivery, and
// manual ack under a Qos(1) prefetch, exactly as the teacher configures it.
package broker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ wraps one AMQP connection, shared by publish and consume calls
// across however many topics are used, mirroring the teacher's one
// connection-per-process pattern.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

// NewRabbitMQ dials url and opens a channel with Qos(1,0,false), the same
// one-message-at-a-time prefetch the teacher's Consumer uses.
func NewRabbitMQ(url string, log *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("broker: set qos: %w", err)
	}

	return &RabbitMQ{conn: conn, ch: ch, log: log.With("component", "broker")}, nil
}

func (r *RabbitMQ) declare(topic string) (amqp.Queue, error) {
	q, err := r.ch.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("broker: declare queue %s: %w", topic, err)
	}
	return q, nil
}

// Publish declares the topic's queue (idempotent) and sends payload as a
// persistent message on the default exchange, routed by queue name, tagged
// with messageID so redeliveries keep a stable identity.
func (r *RabbitMQ) Publish(ctx context.Context, topic, messageID string, payload []byte) error {
	q, err := r.declare(topic)
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx,
		"",
		q.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         payload,
		},
	)
}

// Consume declares the topic's queue and returns a Delivery channel that
// closes when ctx is done.
func (r *RabbitMQ) Consume(ctx context.Context, topic string) (<-chan Delivery, error) {
	q, err := r.declare(topic)
	if err != nil {
		return nil, err
	}

	raw, err := r.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("broker: consume %s: %w", topic, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-raw:
				if !ok {
					return
				}
				messageID := d.MessageId
				if messageID == "" {
					messageID = fmt.Sprintf("delivery-tag-%d", d.DeliveryTag)
				}
				delivery := NewDelivery(
					messageID,
					d.Body,
					func() error { return d.Ack(false) },
					func() error { return d.Nack(false, false) },
					func(context.Context, int) error { return nil },
				)
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// SupportsVisibilityExtension is always false: RabbitMQ's prefetch+ack
// model has no visibility-timeout concept to renew.
func (r *RabbitMQ) SupportsVisibilityExtension() bool { return false }

// Close releases the channel and connection.
func (r *RabbitMQ) Close() error {
	if err := r.ch.Close(); err != nil {
		r.log.Warn("broker: close channel", "error", err)
	}
	return r.conn.Close()
}
