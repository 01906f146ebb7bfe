package api

import (
	"net/http"
	"time"

	"cvrpga/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, true); !ok {
		return
	}
	sc := s.Config.Server
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 sc.Port,
			"AUTH_MODE":            sc.AuthMode,
			"RATE_RPS":             sc.RateRPS,
			"RATE_BURST":           sc.RateBurst,
			"MAX_CONCURRENT_JOBS":  sc.MaxConcurrentJobs,
			"MAX_GENERATIONS":      sc.MaxGenerations,
			"WEBHOOK_MAX_ATTEMPTS": sc.WebhookMaxAttempts,
			"HAS_DATABASE_URL":     sc.DatabaseURL != "",
			"HAS_REDIS_URL":        sc.RedisURL != "",
		},
		"solver": s.Runner.Defaults,
	}
	writeJSON(w, http.StatusOK, info)
}
