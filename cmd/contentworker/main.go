// Command contentworker runs the content-raw Consumer/Dispatcher pair:
// each message is a ContentMessage, handled by the ContentAnalyzer
// (spec.md §4.9). Grounded on the teacher's cmd/worker/main.go: connect
// infrastructure, build the worker, run until ctx cancellation, close in
// reverse init order.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentpulse/internal/analyzer"
	"contentpulse/internal/articlestore"
	"contentpulse/internal/broker"
	"contentpulse/internal/config"
	"contentpulse/internal/consumer"
	"contentpulse/internal/dispatcher"
	"contentpulse/internal/llm"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── Infrastructure ──────────────────────────────────────────────────

	store, err := articlestore.Open(ctx, cfg.PostgresDSN, cfg.ElasticsearchURL)
	if err != nil {
		slog.Error("article store connect failed", "component", "contentworker", "error", err)
		os.Exit(1)
	}

	provider, err := llm.New(cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		slog.Error("llm provider init failed", "component", "contentworker", "error", err)
		os.Exit(1)
	}

	rabbit, err := broker.NewRabbitMQ(cfg.RabbitMQURL, slog.Default())
	if err != nil {
		slog.Error("rabbitmq connect failed", "component", "contentworker", "error", err)
		os.Exit(1)
	}

	pool, err := dispatcher.New(cfg.DispatcherMaxWorkers, "contentworker", slog.Default())
	if err != nil {
		slog.Error("dispatcher init failed", "component", "contentworker", "error", err)
		os.Exit(1)
	}

	// ── Run ──────────────────────────────────────────────────────────────

	handler := analyzer.New(provider, store, slog.Default())
	visibilityTimeout := time.Duration(cfg.ConsumerVisibilityTimeoutSeconds) * time.Second
	c := consumer.New(rabbit, cfg.TopicContentRaw, pool, handler, cfg.DispatcherMaxWorkers, visibilityTimeout, slog.Default())

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Run(runCtx); err != nil {
		slog.Error("consumer error", "component", "contentworker", "error", err)
	}

	// ── Graceful shutdown ──────────────────────────────────────────────
	//
	// Run() has returned — the fetch loop is done. Close connections in
	// reverse init order.

	pool.Close(false)
	rabbit.Close()
	store.Close()

	slog.Info("contentworker stopped", "component", "contentworker")
}
