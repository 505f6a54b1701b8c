package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"contentpulse/internal/broker"
	"contentpulse/internal/dedup"
	"contentpulse/internal/models"
)

type fakeStore struct {
	existing map[string]bool
	calls    int
}

func (f *fakeStore) ArticleExists(ctx context.Context, source, sourceID string) (bool, error) {
	f.calls++
	return f.existing[source+":"+sourceID], nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDedup(t *testing.T) *dedup.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := dedup.New(mr.Addr(), silentLogger())
	if err != nil {
		t.Fatalf("dedup.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIngestPublishesNewArticle(t *testing.T) {
	c := newTestDedup(t)
	store := &fakeStore{existing: map[string]bool{}}
	b := broker.NewMemory()
	ing := New(c, store, b, models.TopicContentRaw, silentLogger())

	deliveries, err := b.Consume(context.Background(), models.TopicContentRaw)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	article := models.RawArticle{Source: "espn", SourceID: "1", Title: "Hello"}
	if err := ing.Ingest(context.Background(), article); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	waitForPublish(t, deliveries)
}

func TestIngestSkipsWhenDedupCacheHits(t *testing.T) {
	c := newTestDedup(t)
	c.MarkSeen(context.Background(), "espn", "1")
	store := &fakeStore{existing: map[string]bool{}}
	ing := New(c, store, broker.NewMemory(), models.TopicContentRaw, silentLogger())

	if err := ing.Ingest(context.Background(), models.RawArticle{Source: "espn", SourceID: "1"}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.calls != 0 {
		t.Errorf("expected the authoritative store check to be skipped on a cache hit, got %d calls", store.calls)
	}
}

func TestIngestSkipsWhenStoreAlreadyHasArticle(t *testing.T) {
	c := newTestDedup(t)
	store := &fakeStore{existing: map[string]bool{"espn:1": true}}
	ing := New(c, store, broker.NewMemory(), models.TopicContentRaw, silentLogger())

	if err := ing.Ingest(context.Background(), models.RawArticle{Source: "espn", SourceID: "1"}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if c.Exists(context.Background(), "espn", "1") {
		t.Error("expected dedup cache to remain unmarked after a store hit: only a publish marks seen")
	}
}

func TestIngestPropagatesStoreError(t *testing.T) {
	c := newTestDedup(t)
	ing := New(c, erroringStore{}, broker.NewMemory(), models.TopicContentRaw, silentLogger())

	if err := ing.Ingest(context.Background(), models.RawArticle{Source: "espn", SourceID: "1"}); err == nil {
		t.Fatal("expected an error from the failing store")
	}
}

type erroringStore struct{}

func (erroringStore) ArticleExists(ctx context.Context, source, sourceID string) (bool, error) {
	return false, errors.New("store down")
}

func waitForPublish(t *testing.T, deliveries <-chan broker.Delivery) {
	t.Helper()
	select {
	case d := <-deliveries:
		d.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}
