package broker

import (
	"context"
	"sync"
)

// Memory is an in-process Broker used by tests for internal/consumer and
// internal/ingest, so those packages' test suites
// do not require a running RabbitMQ. It supports visibility extension so
// the same test suite can exercise both adapter behaviors.
type Memory struct {
	mu      sync.Mutex
	queues  map[string]chan Delivery
	nextID  int
	acked   []string
	nacked  []string
	extends []string
}

// NewMemory constructs an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{queues: make(map[string]chan Delivery)}
}

func (m *Memory) queue(topic string) chan Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[topic]
	if !ok {
		q = make(chan Delivery, 256)
		m.queues[topic] = q
	}
	return q
}

// Publish enqueues payload on topic's in-memory channel.
func (m *Memory) Publish(ctx context.Context, topic, messageID string, payload []byte) error {
	m.mu.Lock()
	if messageID == "" {
		m.nextID++
		messageID = "mem-" + string(rune('a'+m.nextID%26))
	}
	m.mu.Unlock()

	d := NewDelivery(
		messageID,
		payload,
		func() error { m.mu.Lock(); m.acked = append(m.acked, messageID); m.mu.Unlock(); return nil },
		func() error { m.mu.Lock(); m.nacked = append(m.nacked, messageID); m.mu.Unlock(); return nil },
		func(context.Context, int) error {
			m.mu.Lock()
			m.extends = append(m.extends, messageID)
			m.mu.Unlock()
			return nil
		},
	)

	select {
	case m.queue(topic) <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns the topic's channel directly. The channel is never
// closed: neither ctx cancellation nor Close closes it.
func (m *Memory) Consume(ctx context.Context, topic string) (<-chan Delivery, error) {
	return m.queue(topic), nil
}

// SupportsVisibilityExtension is true so tests can assert the extender
// path records calls.
func (m *Memory) SupportsVisibilityExtension() bool { return true }

// Close is a no-op; channels are garbage collected with the Memory value.
func (m *Memory) Close() error { return nil }

// Acked returns the message IDs acked so far, for test assertions.
func (m *Memory) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// Nacked returns the message IDs nacked so far, for test assertions.
func (m *Memory) Nacked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nacked...)
}
