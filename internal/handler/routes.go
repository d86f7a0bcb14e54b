package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every API route. events serves the SSE stream and
// may be nil.
func NewRouter(h *NetworkHandler, events http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	// Networks
	mux.HandleFunc("GET /api/networks", h.ListNetworks)
	mux.HandleFunc("POST /api/networks", h.ImportNetwork)
	mux.HandleFunc("GET /api/networks/{id}", h.GetNetwork)
	mux.HandleFunc("DELETE /api/networks/{id}", h.DeleteNetwork)
	mux.HandleFunc("GET /api/networks/{id}/export", h.ExportNetwork)
	mux.HandleFunc("GET /api/networks/{id}/nodes/{node}", h.GetNode)

	// Airflow
	mux.HandleFunc("POST /api/networks/{id}/airflow", h.ComputeAirflow)

	// Operations
	if events != nil {
		mux.Handle("GET /events", events)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.Health)

	return Chain(mux,
		Recover(logger),
		CORS,
		Logger(logger),
	)
}
