package broker

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPublishConsumeAck(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Publish(ctx, "content-raw", "req-1", []byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deliveries, err := m.Consume(ctx, "content-raw")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.MessageID != "req-1" {
			t.Errorf("expected message id req-1, got %q", d.MessageID)
		}
		if err := d.Ack(); err != nil {
			t.Fatalf("ack: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	if acked := m.Acked(); len(acked) != 1 || acked[0] != "req-1" {
		t.Errorf("expected one ack for req-1, got %v", acked)
	}
}

func TestMemoryExtendVisibilityRecorded(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.Publish(ctx, "query", "req-2", []byte(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deliveries, _ := m.Consume(ctx, "query")
	d := <-deliveries
	if err := d.ExtendVisibility(ctx, 30); err != nil {
		t.Fatalf("extend visibility: %v", err)
	}
	if len(m.extends) != 1 {
		t.Errorf("expected one recorded extension, got %d", len(m.extends))
	}
}
