package store

import (
	"context"
	"errors"
	"time"

	"cvrpga/internal/model"
	"cvrpga/internal/opt"
)

// Store is the persistence interface used by the solver service.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, req model.SolveRequest) (model.Job, error)
	GetJob(ctx context.Context, id string) (model.Job, error)
	ListJobs(ctx context.Context, status, cursor string, limit int) (items []model.Job, nextCursor string, err error)
	StartJob(ctx context.Context, id string) error
	UpdateJobProgress(ctx context.Context, id string, p model.JobProgress) error
	CompleteJob(ctx context.Context, id string, out model.Output) error
	FailJob(ctx context.Context, id string, reason string) error

	// Solver defaults shared by all requests; nil when never saved.
	GetSolverConfig(ctx context.Context) (*opt.Config, error)
	SaveSolverConfig(ctx context.Context, cfg opt.Config) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, jobID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, jobID, status string, limit int) ([]WebhookDelivery, error)
	RetryWebhookDelivery(ctx context.Context, id string) error
}

var (
	ErrNotFound = errors.New("not found")
	// ErrJobState is returned when a transition does not apply to the job's status.
	ErrJobState = errors.New("invalid job state transition")
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return defaultListLimit
	}
	return limit
}
