package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// HTTPRateLimited counts requests rejected by the rate limiter
	HTTPRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_requests_rate_limited_total", Help: "Requests rejected with 429."},
	)

	// SolveJobs counts finished solve jobs by final status
	SolveJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cvrp_solve_jobs_total", Help: "Solve jobs by final status."},
		[]string{"status"},
	)
	// SolveDuration tracks wall time of successful runs
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cvrp_solve_duration_seconds", Help: "Solve duration in seconds.", Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300}},
	)
	// SolveGenerations counts evaluated generations across all runs
	SolveGenerations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cvrp_generations_total", Help: "Generations evaluated."},
	)
	// SolveEvaluations counts chromosome cost evaluations across all runs
	SolveEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cvrp_fitness_evaluations_total", Help: "Chromosome fitness evaluations."},
	)
	// JobsRunning is the number of solves currently executing
	JobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cvrp_jobs_running", Help: "Solve jobs currently running."},
	)
	// JobsQueued is the number of accepted jobs waiting for a worker slot
	JobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cvrp_jobs_queued", Help: "Solve jobs waiting for a slot."},
	)
	// BestCostImprovement is the relative gain of the final cost over the first generation's best
	BestCostImprovement = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cvrp_best_cost_improvement_ratio", Help: "1 - final/initial best cost per run.", Buckets: prometheus.LinearBuckets(0, 0.1, 11)},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers all collectors on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, HTTPRateLimited)
		Registry.MustRegister(SolveJobs, SolveDuration, SolveGenerations, SolveEvaluations, JobsRunning, JobsQueued, BestCostImprovement)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
