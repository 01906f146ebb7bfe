// Package config loads solver and service settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"cvrpga/internal/opt"
)

// Config is the top level settings document.
type Config struct {
	Solver opt.Config `yaml:"solver"`
	Server Server     `yaml:"server"`
}

// Server holds settings of the solver service.
type Server struct {
	Port               string  `yaml:"port"`
	DatabaseURL        string  `yaml:"databaseUrl"`
	RedisURL           string  `yaml:"redisUrl"`
	Migrate            bool    `yaml:"migrate"`
	MigrationsDir      string  `yaml:"migrationsDir"`
	RateRPS            float64 `yaml:"rateRps"`
	RateBurst          int     `yaml:"rateBurst"`
	MaxConcurrentJobs  int     `yaml:"maxConcurrentJobs"`
	MaxGenerations     int     `yaml:"maxGenerations"`
	WebhookMaxAttempts int     `yaml:"webhookMaxAttempts"`
	AuthMode           string  `yaml:"authMode"`
	AuthHMACSecret     string  `yaml:"-"`
	AuthRoleClaim      string  `yaml:"authRoleClaim"`
}

var ErrConfig = errors.New("invalid configuration")

func Default() Config {
	return Config{
		Solver: opt.DefaultConfig(),
		Server: Server{
			Port:               "8080",
			Migrate:            true,
			MigrationsDir:      "db/migrations",
			RateRPS:            20,
			RateBurst:          40,
			MaxConcurrentJobs:  2,
			MaxGenerations:     100000,
			WebhookMaxAttempts: 10,
			AuthMode:           "none",
			AuthRoleClaim:      "role",
		},
	}
}

// Load reads path (optional) over the defaults and then applies environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

// FromEnv is Load with the file named by CVRP_CONFIG.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CVRP_CONFIG"))
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	s := &c.Server
	if v := getenv("PORT"); v != "" {
		s.Port = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		s.DatabaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		s.RedisURL = v
	}
	if v := getenv("DB_MIGRATE"); v != "" {
		s.Migrate = v != "false"
	}
	if v := getenv("AUTH_MODE"); v != "" {
		s.AuthMode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("AUTH_HMAC_SECRET"); v != "" {
		s.AuthHMACSecret = v
	}
	if v := getenv("AUTH_ROLE_CLAIM"); v != "" {
		s.AuthRoleClaim = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_BURST", &s.RateBurst},
		{"MAX_CONCURRENT_JOBS", &s.MaxConcurrentJobs},
		{"MAX_GENERATIONS", &s.MaxGenerations},
		{"WEBHOOK_MAX_ATTEMPTS", &s.WebhookMaxAttempts},
	}
	for _, it := range ints {
		v := getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", it.key, v, ErrConfig)
		}
		*it.dst = n
	}
	if v := getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS=%q: %w", v, ErrConfig)
		}
		s.RateRPS = f
	}
	return nil
}

// Validate checks server limits and the solver section.
func (c Config) Validate() error {
	s := c.Server
	switch {
	case s.MaxConcurrentJobs < 1:
		return fmt.Errorf("maxConcurrentJobs must be >= 1: %w", ErrConfig)
	case s.MaxGenerations < 1:
		return fmt.Errorf("maxGenerations must be >= 1: %w", ErrConfig)
	case s.RateRPS < 0 || s.RateBurst < 0:
		return fmt.Errorf("rate limits must be >= 0: %w", ErrConfig)
	case s.WebhookMaxAttempts < 1:
		return fmt.Errorf("webhookMaxAttempts must be >= 1: %w", ErrConfig)
	}
	switch s.AuthMode {
	case "none":
	case "hmac":
		if s.AuthHMACSecret == "" {
			return fmt.Errorf("authMode hmac needs AUTH_HMAC_SECRET: %w", ErrConfig)
		}
	default:
		return fmt.Errorf("authMode %q: %w", s.AuthMode, ErrConfig)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	return nil
}
