// Command poller runs the Poller half of spec.md §4.8: fetch every
// configured ContentSource on a cron schedule and hand new articles to
// the Ingester. Grounded on the teacher's cmd/api/main.go's cron-lifecycle
// section (StartCronJobs, defer c.Stop() at shutdown) generalized to the
// poller's own scheduler rather than a materialized-view refresh.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentpulse/internal/articlestore"
	"contentpulse/internal/broker"
	"contentpulse/internal/config"
	"contentpulse/internal/contentsource"
	"contentpulse/internal/dedup"
	"contentpulse/internal/ingest"
	"contentpulse/internal/poller"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── Infrastructure ──────────────────────────────────────────────────

	dedupCache, err := dedup.New(cfg.RedisAddr, slog.Default())
	if err != nil {
		slog.Error("dedup cache connect failed", "component", "poller", "error", err)
		os.Exit(1)
	}

	store, err := articlestore.Open(ctx, cfg.PostgresDSN, cfg.ElasticsearchURL)
	if err != nil {
		slog.Error("article store connect failed", "component", "poller", "error", err)
		os.Exit(1)
	}

	rabbit, err := broker.NewRabbitMQ(cfg.RabbitMQURL, slog.Default())
	if err != nil {
		slog.Error("rabbitmq connect failed", "component", "poller", "error", err)
		os.Exit(1)
	}

	var sources []contentsource.Source
	for _, spec := range cfg.ContentSources {
		src, err := contentsource.New(spec.Name, spec.Kind, spec.URL)
		if err != nil {
			slog.Error("skipping unconfigurable content source", "component", "poller", "name", spec.Name, "error", err)
			continue
		}
		sources = append(sources, src)
	}

	// ── Run ──────────────────────────────────────────────────────────────

	ingester := ingest.New(dedupCache, store, rabbit, cfg.TopicContentRaw, slog.Default())
	p := poller.New(sources, ingester, time.Duration(cfg.PollerIntervalSeconds)*time.Second, slog.Default())

	cronScheduler, err := p.Start()
	if err != nil {
		slog.Error("invalid poller schedule", "component", "poller", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received", "component", "poller")

	// cron.Stop() returns a context that is done once the currently-running
	// cycle (if any) finishes; waiting on it blocks until then.
	<-cronScheduler.Stop().Done()
	slog.Info("poller scheduler stopped", "component", "poller")

	rabbit.Close()
	dedupCache.Close()
	store.Close()

	slog.Info("shutdown complete", "component", "poller")
}
