package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cvrpga/internal/model"
	"cvrpga/internal/opt"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	jobs   map[string]model.Job // id -> job
	order  []string             // job ids by creation
	solver *opt.Config
	// Webhooks queue state
	deliveries map[string]*WebhookDelivery // id -> delivery
	dorder     []string                    // delivery ids by creation
	dedup      map[string]string           // job|event|key -> delivery id
}

func NewMemory() *Memory {
	return &Memory{
		jobs:       map[string]model.Job{},
		deliveries: map[string]*WebhookDelivery{},
		dedup:      map[string]string{},
	}
}

func (m *Memory) CreateJob(ctx context.Context, req model.SolveRequest) (model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
	m.jobs[j.ID] = j
	m.order = append(m.order, j.ID)
	return j, nil
}

func (m *Memory) GetJob(ctx context.Context, id string) (model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return j, nil
}

func (m *Memory) ListJobs(ctx context.Context, status, cursor string, limit int) ([]model.Job, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Job{}
	var next string
	for i := start; i < len(m.order) && len(out) < limit; i++ {
		j := m.jobs[m.order[i]]
		if status == "" || j.Status == status {
			out = append(out, j)
			next = j.ID
		}
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

// update applies fn to job id under the lock.
func (m *Memory) update(id string, fn func(*model.Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&j); err != nil {
		return err
	}
	m.jobs[id] = j
	return nil
}

func (m *Memory) StartJob(ctx context.Context, id string) error {
	return m.update(id, func(j *model.Job) error {
		if j.Status != model.JobQueued {
			return fmt.Errorf("start job %s from %s: %w", id, j.Status, ErrJobState)
		}
		now := time.Now().UTC()
		j.Status = model.JobRunning
		j.StartedAt = &now
		return nil
	})
}

func (m *Memory) UpdateJobProgress(ctx context.Context, id string, p model.JobProgress) error {
	return m.update(id, func(j *model.Job) error {
		if j.Status != model.JobRunning {
			return fmt.Errorf("progress for job %s in %s: %w", id, j.Status, ErrJobState)
		}
		j.Progress = &p
		return nil
	})
}

func (m *Memory) CompleteJob(ctx context.Context, id string, out model.Output) error {
	return m.update(id, func(j *model.Job) error {
		if j.Done() {
			return fmt.Errorf("complete job %s in %s: %w", id, j.Status, ErrJobState)
		}
		now := time.Now().UTC()
		j.Status = model.JobSucceeded
		j.Result = &out
		j.FinishedAt = &now
		return nil
	})
}

func (m *Memory) FailJob(ctx context.Context, id string, reason string) error {
	return m.update(id, func(j *model.Job) error {
		if j.Done() {
			return fmt.Errorf("fail job %s in %s: %w", id, j.Status, ErrJobState)
		}
		now := time.Now().UTC()
		j.Status = model.JobFailed
		j.Error = reason
		j.FinishedAt = &now
		return nil
	})
}

func (m *Memory) GetSolverConfig(ctx context.Context) (*opt.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.solver == nil {
		return nil, nil
	}
	cfg := *m.solver
	return &cfg, nil
}

func (m *Memory) SaveSolverConfig(ctx context.Context, cfg opt.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solver = &cfg
	return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, jobID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := jobID + "|" + eventType + "|" + url + "|" + computeDedupKey(payload)
	if id, ok := m.dedup[key]; ok {
		return id, nil
	}
	now := time.Now()
	d := &WebhookDelivery{
		ID:            uuid.New().String(),
		JobID:         jobID,
		EventType:     eventType,
		URL:           url,
		Secret:        secret,
		Payload:       payload,
		Status:        DeliveryPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	m.deliveries[d.ID] = d
	m.dorder = append(m.dorder, d.ID)
	m.dedup[key] = d.ID
	return d.ID, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.dorder {
		d := m.deliveries[id]
		if (d.Status == DeliveryPending || d.Status == DeliveryRetry) && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = DeliveryDelivered
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	d.Status = DeliveryRetry
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = DeliveryFailed
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, jobID, status string, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	out := []WebhookDelivery{}
	for _, id := range m.dorder {
		d := m.deliveries[id]
		if (jobID == "" || d.JobID == jobID) && (status == "" || d.Status == status) {
			out = append(out, *d)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Status = DeliveryPending
	d.NextAttemptAt = time.Now()
	return nil
}
