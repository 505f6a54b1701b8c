// Package gatewayapi implements spec.md §4.11's Gateway HTTP surface:
// submit_query and get_query_status. Grounded on the teacher's
// internal/api/handlers.go (Handler struct carrying narrow dependency
// interfaces, write-back-then-respond shape generalized from
// cache-then-publish to state-create-then-publish, sql.ErrNoRows-style
// not-found handling generalized to a StateStore nil-on-miss contract).
package gatewayapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentpulse/internal/models"
	"contentpulse/internal/telemetry"
)

// StateStore is the narrow dependency the gateway needs.
type StateStore interface {
	Create(ctx context.Context, id string, doc any) error
	Get(ctx context.Context, id string) ([]byte, error)
}

// Publisher is the narrow Broker dependency the gateway needs.
type Publisher interface {
	Publish(ctx context.Context, topic, messageID string, payload []byte) error
}

// Handler holds every dependency the HTTP layer needs, injected by main;
// fakes are injected in tests.
type Handler struct {
	State     StateStore
	Publisher Publisher
	Topic     string
	Log       *slog.Logger
}

// SubmitQuery — POST /query
//
// Generates a request_id, writes the initial Gateway-stage record,
// publishes a QueryMessage, and responds 202 Accepted without waiting
// for the query to actually run (spec.md §4.11).
func (h *Handler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var query models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(query.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	ctx, span := telemetry.StartServer(r.Context(), "gateway.submit_query")
	defer span.End()

	requestID := uuid.NewString()
	now := time.Now().UTC()
	record := models.ProcessedRequest{
		RequestID:    requestID,
		QueryRequest: query,
		Stage:        models.StageGateway,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.State.Create(ctx, requestID, record); err != nil {
		h.Log.Error("state create failed", "component", "gatewayapi", "request_id", requestID, "error", err)
		http.Error(w, "failed to record request", http.StatusInternalServerError)
		return
	}

	msg := models.QueryMessage{
		BaseMessage: models.BaseMessage{
			RequestID:        requestID,
			TopicName:        h.Topic,
			TelemetryHeaders: telemetry.Inject(ctx),
		},
		Query: query,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.Log.Error("marshal query message failed", "component", "gatewayapi", "request_id", requestID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.Publisher.Publish(ctx, h.Topic, requestID, payload); err != nil {
		h.Log.Error("publish query message failed", "component", "gatewayapi", "request_id", requestID, "error", err)
		http.Error(w, "failed to enqueue query", http.StatusInternalServerError)
		return
	}

	h.Log.Info("query accepted", "component", "gatewayapi", "request_id", requestID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(models.RequestResponse{RequestID: requestID, Status: models.StageGateway})
}

// GetQueryStatus — GET /query/{id}
//
// Returns the full ProcessedRequest record, 404 if the id is unknown.
func (h *Handler) GetQueryStatus(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	if requestID == "" {
		http.Error(w, "missing request id", http.StatusBadRequest)
		return
	}

	ctx, span := telemetry.StartServer(r.Context(), "gateway.get_query_status")
	defer span.End()

	raw, err := h.State.Get(ctx, requestID)
	if err != nil {
		h.Log.Error("state get failed", "component", "gatewayapi", "request_id", requestID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if raw == nil {
		http.Error(w, "request not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// Health — GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
