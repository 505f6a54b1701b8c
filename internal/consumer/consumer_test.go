package consumer

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"contentpulse/internal/broker"
	"contentpulse/internal/dispatcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumerHandlesAndAcksMessage(t *testing.T) {
	mem := broker.NewMemory()
	d, err := dispatcher.New(2, "test", testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer d.Close(true)

	var handled int32
	handler := MessageHandlerFunc(func(ctx context.Context, payload []byte) bool {
		atomic.AddInt32(&handled, 1)
		return true
	})

	c := New(mem, "content-raw", d, handler, 2, 30*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	payload := []byte(`{"request_id":"r1","topic_name":"content-raw"}`)
	if err := mem.Publish(context.Background(), "content-raw", "r1", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if atomic.LoadInt32(&handled) == 1 && len(mem.Acked()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out: handled=%d acked=%v", atomic.LoadInt32(&handled), mem.Acked())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
}

func TestConsumerAcksMalformedPayloadWithoutHandling(t *testing.T) {
	mem := broker.NewMemory()
	d, err := dispatcher.New(2, "test", testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer d.Close(true)

	var handled int32
	handler := MessageHandlerFunc(func(ctx context.Context, payload []byte) bool {
		atomic.AddInt32(&handled, 1)
		return true
	})

	c := New(mem, "content-raw", d, handler, 2, 30*time.Second, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	if err := mem.Publish(context.Background(), "content-raw", "bad-1", []byte(`not json`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		acked := mem.Acked()
		if len(acked) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for ack of malformed message, acked=%v", acked)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if atomic.LoadInt32(&handled) != 0 {
		t.Error("expected handler never invoked for malformed payload")
	}
}

func TestConsumerHandlerFailureStillAcks(t *testing.T) {
	mem := broker.NewMemory()
	d, err := dispatcher.New(2, "test", testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer d.Close(true)

	handler := MessageHandlerFunc(func(ctx context.Context, payload []byte) bool {
		return false
	})

	c := New(mem, "query", d, handler, 2, 30*time.Second, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	payload := []byte(`{"request_id":"r2","topic_name":"query"}`)
	if err := mem.Publish(context.Background(), "query", "r2", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if len(mem.Acked()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ack despite handler returning false")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
