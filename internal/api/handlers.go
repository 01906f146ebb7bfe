package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cvrpga/internal/events"
	"cvrpga/internal/model"
	"cvrpga/internal/opt"
)

const maxBodyBytes = 16 << 20

// SolveHandler handles POST /v1/solve
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solve" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authorize(w, r, false); !ok {
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req, s.Config.Server.MaxGenerations); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	inst, cfg, err := s.Runner.Prepare(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := s.Store.CreateJob(r.Context(), req)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create job failed", err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Location", "/v1/jobs/"+job.ID)

	if req.Wait {
		out, err := s.Runner.Run(r.Context(), job)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	s.Runner.Submit(job)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":     job.ID,
		"status":    job.Status,
		"customers": len(inst.Customers()),
		"config":    cfg,
	})
}

// JobsHandler handles GET /v1/jobs
func (s *Server) JobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/jobs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authorize(w, r, false); !ok {
		return
	}
	q := r.URL.Query()
	items, next, err := s.Store.ListJobs(r.Context(), q.Get("status"), q.Get("cursor"), queryLimit(r))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List jobs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// JobByIDHandler handles GET /v1/jobs/{id} and its /events/stream, /ws, /metrics and /webhooks children.
func (s *Server) JobByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.Trim(strings.TrimPrefix(path, "/v1/jobs/"), "/")
	if rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	sub := strings.Join(parts[1:], "/")

	adminOnly := sub == "webhooks"
	if _, ok := s.authorize(w, r, adminOnly); !ok {
		return
	}
	switch sub {
	case "":
		job, err := s.Store.GetJob(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	case "events/stream":
		s.streamJobEvents(w, r, id)
	case "ws":
		s.JobWSHandler(w, r, id)
	case "metrics":
		m, ok := opt.GetMetrics(id)
		if !ok {
			writeProblem(w, http.StatusNotFound, "Metrics not found", "no finished run for job "+id, path)
			return
		}
		writeJSON(w, http.StatusOK, m)
	case "webhooks":
		items, err := s.Store.ListWebhookDeliveries(r.Context(), id, r.URL.Query().Get("status"), queryLimit(r))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

// finalEvent describes a finished job the way the runner announced it.
func finalEvent(job model.Job) events.Event {
	if job.Status == model.JobFailed {
		return events.Event{Type: events.JobFailed, Data: map[string]any{"jobId": job.ID, "error": job.Error}}
	}
	data := map[string]any{"jobId": job.ID}
	if job.Result != nil {
		data["bestCost"] = job.Result.BestCost
		data["routes"] = len(job.Result.BestPath)
		data["seed"] = job.Result.Seed
	}
	return events.Event{Type: events.JobSucceeded, Data: data}
}

func (s *Server) streamJobEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	// subscribe before reading the job so a completion in between is not lost
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	job, err := s.Store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(evtType string, data any) {
		b, _ := json.Marshal(data)
		fmt.Fprintf(w, "event: %s\n", evtType)
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
	send("snapshot", map[string]any{"jobId": job.ID, "status": job.Status, "progress": job.Progress})
	if job.Done() {
		evt := finalEvent(job)
		send(evt.Type, evt.Data)
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt.Type, evt.Data)
			if evt.Final() {
				return
			}
		case <-heartbeat.C:
			send("heartbeat", map[string]any{"jobId": id, "ts": time.Now().UTC().Format(time.RFC3339)})
		}
	}
}

// SolverConfigHandler handles GET/PUT /v1/solver/config
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solver/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.authorize(w, r, false); !ok {
			return
		}
		saved, err := s.Store.GetSolverConfig(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load solver config failed", err.Error(), r.URL.Path)
			return
		}
		source, cfg := "defaults", s.Runner.Defaults
		if saved != nil {
			source, cfg = "store", *saved
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg, "source": source})
	case http.MethodPut:
		if _, ok := s.authorize(w, r, true); !ok {
			return
		}
		// fields missing from the body keep their current value
		cfg, err := s.Runner.BaseConfig(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load solver config failed", err.Error(), r.URL.Path)
			return
		}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := cfg.Validate(); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid solver config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveSolverConfig(r.Context(), cfg); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg, "source": "store"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Admin: webhook deliveries list and retry
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/webhook-deliveries" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if _, ok := s.authorize(w, r, true); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(405)
		return
	}
	q := r.URL.Query()
	items, err := s.Store.ListWebhookDeliveries(r.Context(), q.Get("jobId"), q.Get("status"), queryLimit(r))
	if err != nil {
		writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"items": items})
}

func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/") || !strings.HasSuffix(r.URL.Path, "/retry") {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(405)
		return
	}
	if _, ok := s.authorize(w, r, true); !ok {
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
	if err := s.Store.RetryWebhookDelivery(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, 202, map[string]int{"accepted": 1})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB and Redis connectivity when configured
	for name, dep := range map[string]any{"store": s.Store, "broker": s.Broker} {
		p, ok := dep.(pinger)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			writeProblem(w, 503, "Not Ready", name+": "+err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
