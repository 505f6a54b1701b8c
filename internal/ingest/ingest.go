// Package ingest implements spec.md §4.8's Ingester half: turn one
// RawArticle into a published ContentMessage, skipping anything already
// seen. Grounded on original_source's content_poller/poller.py's
// _is_duplicate (DedupCache check, falling back to the authoritative store
// only on a cache miss) and on publish-then-mark-seen ordering so a crash
// between publish and mark-seen produces at worst a redundant publish, not
// a silently dropped one.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"contentpulse/internal/broker"
	"contentpulse/internal/dedup"
	"contentpulse/internal/models"
	"contentpulse/internal/telemetry"
)

// ArticleExistence is the narrow ArticleStore dependency Ingester needs.
type ArticleExistence interface {
	ArticleExists(ctx context.Context, source, sourceID string) (bool, error)
}

// Ingester turns RawArticles into published ContentMessages, deduplicated
// first against the fast cache and then against the authoritative store.
type Ingester struct {
	dedupCache *dedup.Cache
	store      ArticleExistence
	broker     broker.Broker
	topic      string
	log        *slog.Logger
}

// New builds an Ingester.
func New(dedupCache *dedup.Cache, store ArticleExistence, b broker.Broker, topic string, log *slog.Logger) *Ingester {
	return &Ingester{dedupCache: dedupCache, store: store, broker: b, topic: topic, log: log}
}

// Ingest runs spec.md §4.8's per-article steps: dedup cache check,
// authoritative existence check on a cache miss, envelope build, publish,
// mark-seen. A duplicate at either check is a no-op, not an error.
func (i *Ingester) Ingest(ctx context.Context, article models.RawArticle) error {
	ctx, span := telemetry.StartProducer(ctx, "ingest.article")
	defer span.End()

	if i.dedupCache.Exists(ctx, article.Source, article.SourceID) {
		i.log.Debug("skipping duplicate (cache hit)", "component", "ingest", "source", article.Source, "source_id", article.SourceID)
		return nil
	}

	exists, err := i.store.ArticleExists(ctx, article.Source, article.SourceID)
	if err != nil {
		return fmt.Errorf("ingest: article existence check: %w", err)
	}
	if exists {
		i.log.Debug("skipping duplicate (store hit)", "component", "ingest", "source", article.Source, "source_id", article.SourceID)
		return nil
	}

	msg := models.ContentMessage{
		BaseMessage: models.BaseMessage{
			RequestID:        uuid.NewString(),
			TopicName:        i.topic,
			TelemetryHeaders: telemetry.Inject(ctx),
		},
		RawContent: article,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ingest: marshal content message: %w", err)
	}

	if err := i.broker.Publish(ctx, i.topic, msg.RequestID, payload); err != nil {
		return fmt.Errorf("ingest: publish: %w", err)
	}

	i.dedupCache.MarkSeen(ctx, article.Source, article.SourceID)
	i.log.Info("article ingested", "component", "ingest", "source", article.Source, "source_id", article.SourceID, "request_id", msg.RequestID)
	return nil
}
