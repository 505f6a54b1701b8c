// Package broker defines the abstract Broker capability set spec.md §4.4
// requires — publish/consume/ack with optional visibility extension — so
// the Consumer (internal/consumer) is written once against an interface
// and a concrete transport lives entirely in its own adapter.
package broker

import "context"

// Delivery is one received message. A Delivery must be Ack'd or Nack'd
// exactly once; ExtendVisibility may be called any number of times while
// it is outstanding.
type Delivery struct {
	MessageID string
	Payload   []byte

	ackFn              func() error
	nackFn             func() error
	extendVisibilityFn func(ctx context.Context, seconds int) error
}

// Ack durably acknowledges the message as handled.
func (d Delivery) Ack() error { return d.ackFn() }

// Nack rejects the message without requeuing it. The Consumer never calls
// it: it acks every message, malformed payloads and handler failures
// included.
func (d Delivery) Nack() error { return d.nackFn() }

// ExtendVisibility renews the broker's in-flight lease for this message.
// On brokers with no visibility-timeout concept this is a no-op; callers
// should check Broker.SupportsVisibilityExtension before scheduling
// periodic renewal.
func (d Delivery) ExtendVisibility(ctx context.Context, seconds int) error {
	return d.extendVisibilityFn(ctx, seconds)
}

// NewDelivery builds a Delivery from adapter-supplied callbacks. Exported
// so adapters in other packages (and tests) can construct one without a
// broker.internal indirection.
func NewDelivery(messageID string, payload []byte, ack, nack func() error, extendVisibility func(ctx context.Context, seconds int) error) Delivery {
	return Delivery{
		MessageID:          messageID,
		Payload:            payload,
		ackFn:              ack,
		nackFn:             nack,
		extendVisibilityFn: extendVisibility,
	}
}

// Broker is the transport-agnostic contract the Consumer and Ingester are
// written against.
type Broker interface {
	// Publish sends payload to topic tagged with messageID, returning once
	// the broker has acknowledged receipt. messageID rides along as the
	// broker message's identifier so that redeliveries of the same
	// logical message present the same MessageID to the Consumer's
	// in-flight registry.
	Publish(ctx context.Context, topic, messageID string, payload []byte) error

	// Consume returns a channel of Delivery values for topic. The channel
	// closes when ctx is cancelled or the underlying subscription ends.
	Consume(ctx context.Context, topic string) (<-chan Delivery, error)

	// SupportsVisibilityExtension reports whether ExtendVisibility on
	// Deliveries from this broker has any effect.
	SupportsVisibilityExtension() bool

	// Close releases the broker's connections.
	Close() error
}
