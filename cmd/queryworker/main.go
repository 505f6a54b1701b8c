// Command queryworker runs the query Consumer/Dispatcher pair: each
// message is a QueryMessage, handled by the QueryEngine (spec.md §4.10).
// Grounded on the teacher's cmd/worker/main.go, mirroring contentworker's
// wiring with a different handler and topic.
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
	"contentpulse/internal/consumer"
	"contentpulse/internal/dispatcher"
	"contentpulse/internal/llm"
	"contentpulse/internal/queryengine"
	"contentpulse/internal/statestore"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── Infrastructure ──────────────────────────────────────────────────

	state, err := statestore.New(cfg.RedisAddr, time.Duration(cfg.RedisDefaultTTLSeconds)*time.Second)
	if err != nil {
		slog.Error("statestore connect failed", "component", "queryworker", "error", err)
		os.Exit(1)
	}

	store, err := articlestore.Open(ctx, cfg.PostgresDSN, cfg.ElasticsearchURL)
	if err != nil {
		slog.Error("article store connect failed", "component", "queryworker", "error", err)
		os.Exit(1)
	}

	provider, err := llm.New(cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		slog.Error("llm provider init failed", "component", "queryworker", "error", err)
		os.Exit(1)
	}

	rabbit, err := broker.NewRabbitMQ(cfg.RabbitMQURL, slog.Default())
	if err != nil {
		slog.Error("rabbitmq connect failed", "component", "queryworker", "error", err)
		os.Exit(1)
	}

	pool, err := dispatcher.New(cfg.DispatcherMaxWorkers, "queryworker", slog.Default())
	if err != nil {
		slog.Error("dispatcher init failed", "component", "queryworker", "error", err)
		os.Exit(1)
	}

	// ── Run ──────────────────────────────────────────────────────────────

	handler := queryengine.New(state, store, provider, cfg.LLMModel, slog.Default())
	visibilityTimeout := time.Duration(cfg.ConsumerVisibilityTimeoutSeconds) * time.Second
	c := consumer.New(rabbit, cfg.TopicQuery, pool, handler, cfg.DispatcherMaxWorkers, visibilityTimeout, slog.Default())

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Run(runCtx); err != nil {
		slog.Error("consumer error", "component", "queryworker", "error", err)
	}

	// ── Graceful shutdown ──────────────────────────────────────────────

	pool.Close(false)
	rabbit.Close()
	store.Close()
	state.Close()

	slog.Info("queryworker stopped", "component", "queryworker")
}
