// Package consumer implements the Consumer: a bounded-concurrency async
// loop that fetches messages from a Broker topic, dispatches each to a
// MessageHandler through a Dispatcher, extends per-message visibility
// while work is in flight, and acks on completion regardless of handler
// outcome. This is the hardest subsystem in the spec; its design is
// modeled directly on the BoundedSemaphore + in-flight-registry +
// call_soon_threadsafe pattern found in original_source's
// sqs_message_processor.py, translated to Go: the Python event loop's
// call_soon_threadsafe becomes a buffered completions channel drained by
// a single dedicated goroutine, so semaphore release and registry
// mutation never happen directly from a dispatcher worker goroutine.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"contentpulse/internal/broker"
	"contentpulse/internal/dispatcher"
	"contentpulse/internal/metrics"
	"contentpulse/internal/models"
	"contentpulse/internal/telemetry"
)

// completionEvent is what a submitted task's completion watcher goroutine
// sends back to the consumer's own drain loop — the Go analogue of
// call_soon_threadsafe.
type completionEvent struct {
	delivery broker.Delivery
	result   bool
}

// Consumer runs the fetch/dispatch/ack loop for one topic.
type Consumer struct {
	broker     broker.Broker
	topic      string
	dispatcher *dispatcher.Dispatcher
	handler    MessageHandler
	log        *slog.Logger

	sem *semaphore.Weighted

	visibilityTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]func() // message_id -> extender stop func

	completions chan completionEvent
}

// New constructs a Consumer. maxWorkers sizes both the bounded semaphore
// and (by convention) the paired Dispatcher's pool. visibilityTimeout is
// only meaningful for brokers where SupportsVisibilityExtension is true;
// it is ignored otherwise.
func New(b broker.Broker, topic string, d *dispatcher.Dispatcher, handler MessageHandler, maxWorkers int, visibilityTimeout time.Duration, log *slog.Logger) *Consumer {
	return &Consumer{
		broker:            b,
		topic:             topic,
		dispatcher:        d,
		handler:           handler,
		log:               log.With("component", "consumer", "topic", topic),
		sem:               semaphore.NewWeighted(int64(maxWorkers)),
		visibilityTimeout: visibilityTimeout,
		inflight:          make(map[string]func()),
		completions:       make(chan completionEvent, maxWorkers),
	}
}

// Run drives the fetch/dispatch/ack loop until ctx is cancelled. It never
// returns an error for ordinary shutdown; only broker.Consume failing to
// start is surfaced.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.broker.Consume(ctx, c.topic)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.drainCompletions(ctx)
	}()
	defer wg.Wait()

	for {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			c.sem.Release(1)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				c.sem.Release(1)
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery implements spec.md §4.6 steps 3-7 for one received
// message.
func (c *Consumer) handleDelivery(ctx context.Context, d broker.Delivery) {
	var base models.BaseMessage
	if err := json.Unmarshal(d.Payload, &base); err != nil {
		c.log.Warn("malformed envelope, acking and dropping", "error", err)
		if err := d.Ack(); err != nil {
			c.log.Error("ack of malformed message failed", "error", err)
		}
		c.sem.Release(1)
		return
	}

	c.mu.Lock()
	if _, already := c.inflight[d.MessageID]; already {
		c.mu.Unlock()
		c.log.Debug("duplicate delivery for in-flight message, dropping", "message_id", d.MessageID)
		if err := d.Ack(); err != nil {
			c.log.Error("ack of duplicate delivery failed", "error", err)
		}
		c.sem.Release(1)
		return
	}

	stop := func() {}
	if c.broker.SupportsVisibilityExtension() {
		stop = c.startExtender(d)
	}
	c.inflight[d.MessageID] = stop
	c.mu.Unlock()
	metrics.ConsumerInFlight.WithLabelValues(c.topic).Inc()

	spanCtx := telemetry.Extract(ctx, base.TelemetryHeaders)
	spanCtx, span := telemetry.StartConsumer(spanCtx, "consumer.handle."+c.topic)

	resultC := c.dispatcher.Submit(spanCtx, func(hctx context.Context) bool {
		return c.handler.Handle(hctx, d.Payload)
	})

	go func() {
		result := <-resultC
		span.End()
		c.completions <- completionEvent{delivery: d, result: result}
	}()
}

// drainCompletions is the sole owner of in-flight registry mutation and
// semaphore release once a task finishes; only this goroutine ever calls
// them, so the invariant "semaphore count == max_worker_count - |in-flight|"
// cannot be violated by a worker goroutine racing the fetch loop.
func (c *Consumer) drainCompletions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-c.completions:
			c.completeMessage(evt)
		}
	}
}

func (c *Consumer) completeMessage(evt completionEvent) {
	c.mu.Lock()
	stop, ok := c.inflight[evt.delivery.MessageID]
	delete(c.inflight, evt.delivery.MessageID)
	c.mu.Unlock()
	if ok {
		stop()
	}
	metrics.ConsumerInFlight.WithLabelValues(c.topic).Dec()

	if err := evt.delivery.Ack(); err != nil {
		c.log.Error("ack failed", "error", err, "message_id", evt.delivery.MessageID)
	}

	outcome := "handled"
	if !evt.result {
		outcome = "handler_failed_but_acked"
	}
	metrics.ConsumerMessagesTotal.WithLabelValues(c.topic, outcome).Inc()

	c.sem.Release(1)
}

// startExtender renews visibility at two-thirds of visibilityTimeout
// until the returned stop function is called.
func (c *Consumer) startExtender(d broker.Delivery) func() {
	interval := c.visibilityTimeout * 2 / 3
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := d.ExtendVisibility(context.Background(), int(c.visibilityTimeout.Seconds())); err != nil {
					c.log.Warn("visibility extension failed, message will be redelivered", "error", err, "message_id", d.MessageID)
				}
			}
		}
	}()
	return func() { close(done) }
}
