// Package events fans job events out to SSE and WebSocket subscribers.
package events

import (
	"sync"
)

// Job event types.
const (
	JobProgress  = "job.progress"
	JobImproved  = "job.improved"
	JobSucceeded = "job.succeeded"
	JobFailed    = "job.failed"
)

type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Final reports whether no further events follow e for the job.
func (e Event) Final() bool { return e.Type == JobSucceeded || e.Type == JobFailed }

type EventBroker interface {
	Subscribe(jobID string) chan Event
	Unsubscribe(jobID string, ch chan Event)
	Publish(jobID string, evt Event)
}

// Broker is the in-process EventBroker. Slow subscribers drop events, but never
// the final one.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // jobID -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(jobID string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = map[chan Event]struct{}{}
	}
	b.subs[jobID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(jobID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[jobID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, jobID)
	}
	close(ch)
}

func (b *Broker) Publish(jobID string, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[jobID] {
		deliver(ch, evt)
	}
}

// deliver sends evt to ch without blocking. When ch is full a final event takes
// the place of the oldest queued one; other events are dropped. The caller must
// be the only sender on ch.
func deliver(ch chan Event, evt Event) bool {
	select {
	case ch <- evt:
		return true
	default:
	}
	if !evt.Final() {
		return false
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
		return true
	default:
		return false
	}
}
