package api

import (
	"context"
	"log"
	"strings"

	"golang.org/x/time/rate"

	"cvrpga/internal/auth"
	"cvrpga/internal/config"
	"cvrpga/internal/events"
	"cvrpga/internal/jobs"
	"cvrpga/internal/store"
	"cvrpga/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Pub     *webhooks.Publisher
	Auth    *auth.Verifier
	Broker  events.EventBroker
	Runner  *jobs.Runner
	Config  config.Config
	limiter *rate.Limiter
}

// NewServer creates a Server. If no database URL is configured, uses the in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	sc := cfg.Server
	var s store.Store
	if strings.TrimSpace(sc.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(sc.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if sc.Migrate {
			if err := sp.MigrateDir(sc.MigrationsDir); err != nil {
				log.Printf("migrate dir=%s err=%v", sc.MigrationsDir, err)
			}
		}
		s = sp
	}
	var broker events.EventBroker = events.NewBroker()
	if sc.RedisURL != "" {
		if rb, err := events.NewRedisBroker(sc.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker disabled err=%v", err)
		}
	}
	pub := webhooks.NewPublisher(s)
	srv := &Server{
		Store:  s,
		Pub:    pub,
		Auth:   auth.NewVerifier(sc.AuthMode, sc.AuthHMACSecret, sc.AuthRoleClaim),
		Broker: broker,
		Runner: jobs.NewRunner(s, broker, pub, cfg.Solver, sc.MaxConcurrentJobs),
		Config: cfg,
	}
	if sc.RateRPS > 0 {
		srv.limiter = rate.NewLimiter(rate.Limit(sc.RateRPS), max(sc.RateBurst, 1))
	}
	return srv, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Config.Server.WebhookMaxAttempts)
}

// Close waits for running jobs and releases the store and broker connections.
func (s *Server) Close() {
	s.Runner.Wait()
	type closer interface{ Close() error }
	for _, c := range []any{s.Broker, s.Store} {
		if cl, ok := c.(closer); ok {
			_ = cl.Close()
		}
	}
}

type pinger interface{ Ping(ctx context.Context) error }
