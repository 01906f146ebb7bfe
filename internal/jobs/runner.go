// Package jobs executes solve jobs in the background with bounded concurrency.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cvrpga/internal/events"
	"cvrpga/internal/metrics"
	"cvrpga/internal/model"
	"cvrpga/internal/opt"
	"cvrpga/internal/store"
	"cvrpga/internal/webhooks"
)

// progressEvery throttles job.progress events; improvements are always published.
const progressEvery = 250 * time.Millisecond

type Runner struct {
	Store  store.Store
	Broker events.EventBroker
	Pub    *webhooks.Publisher
	// Defaults is used when no solver config was saved in the store.
	Defaults opt.Config

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewRunner(s store.Store, b events.EventBroker, pub *webhooks.Publisher, defaults opt.Config, maxConcurrent int) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{Store: s, Broker: b, Pub: pub, Defaults: defaults, sem: make(chan struct{}, maxConcurrent)}
}

// BaseConfig returns the saved solver config, falling back to Defaults.
func (r *Runner) BaseConfig(ctx context.Context) (opt.Config, error) {
	cfg, err := r.Store.GetSolverConfig(ctx)
	if err != nil {
		return opt.Config{}, err
	}
	if cfg == nil {
		return r.Defaults, nil
	}
	return *cfg, nil
}

// Prepare builds the instance and the resolved config of a request without running it.
func (r *Runner) Prepare(ctx context.Context, req model.SolveRequest) (*opt.Instance, opt.Config, error) {
	inst, err := opt.NewInstance(req.Description)
	if err != nil {
		return nil, opt.Config{}, err
	}
	base, err := r.BaseConfig(ctx)
	if err != nil {
		return nil, opt.Config{}, err
	}
	cfg := base.WithOverrides(req.Solver)
	if err := cfg.Validate(); err != nil {
		return nil, opt.Config{}, err
	}
	cfg = cfg.Resolve(inst.N())
	if err := cfg.Validate(); err != nil {
		return nil, opt.Config{}, err
	}
	return inst, cfg, nil
}

// Submit runs the job in the background once a slot is free.
func (r *Runner) Submit(job model.Job) {
	metrics.JobsQueued.Inc()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		metrics.JobsQueued.Dec()
		defer func() { <-r.sem }()
		_, _ = r.execute(job)
	}()
}

// Run executes the job on the calling goroutine, waiting for a slot unless ctx ends first.
func (r *Runner) Run(ctx context.Context, job model.Job) (model.Output, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		if err := r.Store.FailJob(context.Background(), job.ID, "cancelled while queued"); err != nil {
			log.Printf("job=%s fail err=%v", job.ID, err)
		}
		return model.Output{}, ctx.Err()
	}
	defer func() { <-r.sem }()
	return r.execute(job)
}

// Wait blocks until all submitted jobs finished.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) execute(job model.Job) (model.Output, error) {
	ctx := context.Background()
	if err := r.Store.StartJob(ctx, job.ID); err != nil {
		log.Printf("job=%s start err=%v", job.ID, err)
		return model.Output{}, err
	}
	metrics.JobsRunning.Inc()
	defer metrics.JobsRunning.Dec()
	log.Printf("job=%s started generations=%d", job.ID, job.Request.Generations)

	out, res, err := r.solve(ctx, job)
	if err != nil {
		r.fail(ctx, job, err)
		return model.Output{}, err
	}
	if err := r.Store.CompleteJob(ctx, job.ID, out); err != nil {
		r.fail(ctx, job, fmt.Errorf("save result: %w", err))
		return model.Output{}, err
	}

	opt.RecordMetrics(job.ID, res.Metrics)
	metrics.SolveJobs.WithLabelValues(model.JobSucceeded).Inc()
	metrics.SolveDuration.Observe(res.Metrics.Duration.Seconds())
	metrics.SolveGenerations.Add(float64(res.Metrics.Generations))
	metrics.SolveEvaluations.Add(float64(res.Metrics.Evaluations))
	if res.Metrics.InitialBest > 0 {
		metrics.BestCostImprovement.Observe(1 - float64(res.Cost)/float64(res.Metrics.InitialBest))
	}

	data := map[string]any{
		"jobId":          job.ID,
		"bestCost":       res.Cost,
		"bestGeneration": res.BestGeneration,
		"routes":         len(res.Plan),
		"seed":           res.Seed,
	}
	r.Broker.Publish(job.ID, events.Event{Type: events.JobSucceeded, Data: data})
	if r.Pub != nil {
		r.Pub.Emit(ctx, job, webhooks.EventJobSucceeded, data)
	}
	log.Printf("job=%s succeeded best=%d gen=%d seed=%d dur=%s", job.ID, res.Cost, res.BestGeneration, res.Seed, res.Metrics.Duration)
	return out, nil
}

func (r *Runner) solve(ctx context.Context, job model.Job) (model.Output, opt.Result, error) {
	inst, cfg, err := r.Prepare(ctx, job.Request)
	if err != nil {
		return model.Output{}, opt.Result{}, err
	}
	var last time.Time
	progress := func(p opt.Progress) {
		data := map[string]any{
			"generation":     p.Generation,
			"bestCost":       p.BestCost,
			"bestGeneration": p.BestGeneration,
			"meanCost":       p.MeanCost,
			"stdDevCost":     p.StdDevCost,
		}
		if p.Improved {
			r.Broker.Publish(job.ID, events.Event{Type: events.JobImproved, Data: data})
			jp := model.JobProgress{Generation: p.Generation, BestCost: p.BestCost, BestGeneration: p.BestGeneration}
			if err := r.Store.UpdateJobProgress(ctx, job.ID, jp); err != nil {
				log.Printf("job=%s progress err=%v", job.ID, err)
			}
		}
		if now := time.Now(); now.Sub(last) >= progressEvery || p.Generation == job.Request.Generations-1 {
			last = now
			r.Broker.Publish(job.ID, events.Event{Type: events.JobProgress, Data: data})
		}
	}
	res, err := opt.Solve(inst, cfg, job.Request.Generations, progress)
	if err != nil {
		return model.Output{}, opt.Result{}, err
	}
	return res.Output(job.Request.Description), res, nil
}

func (r *Runner) fail(ctx context.Context, job model.Job, cause error) {
	if err := r.Store.FailJob(ctx, job.ID, cause.Error()); err != nil && !errors.Is(err, store.ErrJobState) {
		log.Printf("job=%s fail err=%v", job.ID, err)
	}
	metrics.SolveJobs.WithLabelValues(model.JobFailed).Inc()
	data := map[string]any{"jobId": job.ID, "error": cause.Error()}
	r.Broker.Publish(job.ID, events.Event{Type: events.JobFailed, Data: data})
	if r.Pub != nil {
		r.Pub.Emit(ctx, job, webhooks.EventJobFailed, data)
	}
	log.Printf("job=%s failed err=%v", job.ID, cause)
}
