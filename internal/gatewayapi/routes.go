package gatewayapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes attaches the gateway's full route surface to mux,
// matching the teacher's internal/api/routes.go split of routing away
// from handler logic.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /query", h.SubmitQuery)
	mux.HandleFunc("GET /query/{id}", h.GetQueryStatus)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
}
