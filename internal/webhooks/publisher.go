package webhooks

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"cvrpga/internal/model"
	"cvrpga/internal/store"
)

// Job lifecycle event types delivered to callback URLs.
const (
	EventJobSucceeded = "job.succeeded"
	EventJobFailed    = "job.failed"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit queues an event for the job's callback URL. Jobs without a callback are skipped.
// The event id is derived from job and type, so re-emitting the same event is a no-op.
func (p *Publisher) Emit(ctx context.Context, job model.Job, eventType string, data any) {
	url := job.Request.CallbackURL
	if url == "" {
		return
	}
	payload := map[string]any{
		"id":    "evt_" + job.ID + "_" + eventType,
		"type":  eventType,
		"jobId": job.ID,
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"data":  data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhook encode job=%s type=%s err=%v", job.ID, eventType, err)
		return
	}
	if _, err := p.Store.EnqueueWebhook(ctx, job.ID, eventType, url, job.Request.CallbackSecret, body); err != nil {
		log.Printf("webhook enqueue job=%s type=%s err=%v", job.ID, eventType, err)
	}
}
