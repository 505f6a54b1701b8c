// Command gateway runs the HTTP surface for spec.md §4.11: submit a
// query, check its status. Grounded on the teacher's cmd/api/main.go:
// connect infrastructure, build the handler, serve, then shut down in
// reverse init order on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentpulse/internal/broker"
	"contentpulse/internal/config"
	"contentpulse/internal/gatewayapi"
	"contentpulse/internal/httpmid"
	"contentpulse/internal/statestore"
)

func main() {
	cfg := config.Load()

	// ── Infrastructure ──────────────────────────────────────────────────

	state, err := statestore.New(cfg.RedisAddr, time.Duration(cfg.RedisDefaultTTLSeconds)*time.Second)
	if err != nil {
		slog.Error("statestore connect failed", "component", "gateway", "error", err)
		os.Exit(1)
	}

	rabbit, err := broker.NewRabbitMQ(cfg.RabbitMQURL, slog.Default())
	if err != nil {
		slog.Error("rabbitmq connect failed", "component", "gateway", "error", err)
		os.Exit(1)
	}

	// ── HTTP server ─────────────────────────────────────────────────────

	h := &gatewayapi.Handler{
		State:     state,
		Publisher: rabbit,
		Topic:     cfg.TopicQuery,
		Log:       slog.Default(),
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := httpmid.Chain(mux,
		httpmid.Recover(slog.Default()),
		httpmid.Logger(slog.Default()),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("gateway started", "component", "gateway", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "component", "gateway", "error", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────
	//
	// Stop accepting new requests first; in-flight requests finish within
	// the shutdown timeout, then infrastructure clients close in reverse
	// init order.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received", "component", "gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "component", "gateway", "error", err)
	}

	rabbit.Close()
	state.Close()

	slog.Info("shutdown complete", "component", "gateway")
}
