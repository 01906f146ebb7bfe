package api

import (
	"net/http"

	"cvrpga/internal/metrics"
)

// Handler returns the service mux wrapped in the logging, metrics and rate limit middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Solving
	mux.HandleFunc("/v1/solve", s.SolveHandler)
	mux.HandleFunc("/v1/jobs", s.JobsHandler)
	mux.HandleFunc("/v1/jobs/", s.JobByIDHandler) // includes /events/stream, /ws, /metrics, /webhooks
	mux.HandleFunc("/v1/solver/config", s.SolverConfigHandler)

	// Admin
	mux.HandleFunc("/v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)
	mux.HandleFunc("/v1/admin/webhook-deliveries/", s.WebhookDeliveryRetryHandler)
	mux.HandleFunc("/debug", s.DebugJSON)

	// Health, metrics, docs
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	return logMiddleware(metricsMiddleware(s.rateLimit(mux)))
}
