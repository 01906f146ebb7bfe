package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cvrpga/internal/events"
	"cvrpga/internal/model"
	"cvrpga/internal/opt"
	"cvrpga/internal/store"
	"cvrpga/internal/webhooks"
)

type recordBroker struct {
	mu     sync.Mutex
	events map[string][]events.Event
}

func (b *recordBroker) Subscribe(string) chan events.Event    { return make(chan events.Event) }
func (b *recordBroker) Unsubscribe(string, chan events.Event) {}
func (b *recordBroker) Publish(jobID string, evt events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = map[string][]events.Event{}
	}
	b.events[jobID] = append(b.events[jobID], evt)
}

func (b *recordBroker) types(jobID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events[jobID] {
		out = append(out, e.Type)
	}
	return out
}

func lineRequest(generations int) model.SolveRequest {
	seed := int64(5)
	return model.SolveRequest{
		Description: model.Description{
			Capacity:       6,
			EdgeWeightType: model.EdgeWeightEuclidean2D,
			Nodes: map[string]model.Node{
				"D": {IsDepot: true},
				"A": {X: 1, Demand: 3},
				"B": {X: 2, Demand: 3},
				"C": {X: 3, Demand: 3},
			},
		},
		Generations: generations,
		Solver:      model.SolverOverrides{Seed: &seed},
	}
}

func newRunner(t *testing.T) (*Runner, *store.Memory, *recordBroker) {
	t.Helper()
	mem := store.NewMemory()
	b := &recordBroker{}
	return NewRunner(mem, b, webhooks.NewPublisher(mem), opt.DefaultConfig(), 2), mem, b
}

func TestRunnerSubmitSucceeds(t *testing.T) {
	r, mem, b := newRunner(t)
	ctx := context.Background()
	req := lineRequest(15)
	req.CallbackURL = "http://example.invalid/hook"
	job, err := mem.CreateJob(ctx, req)
	require.NoError(t, err)

	r.Submit(job)
	r.Wait()

	got, err := mem.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobSucceeded, got.Status)
	require.NotNil(t, got.Result)
	require.LessOrEqual(t, got.Result.BestCost, 10)
	require.Equal(t, int64(5), got.Result.Seed)
	require.Equal(t, 15, got.Result.Generations)
	require.NotNil(t, got.Progress)
	require.Equal(t, got.Result.BestCost, got.Progress.BestCost)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)

	m, ok := opt.GetMetrics(job.ID)
	require.True(t, ok)
	require.Equal(t, 15, m.Generations)

	types := b.types(job.ID)
	require.Contains(t, types, events.JobImproved)
	require.Contains(t, types, events.JobProgress)
	require.Equal(t, events.JobSucceeded, types[len(types)-1])

	deliveries, err := mem.ListWebhookDeliveries(ctx, job.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Equal(t, webhooks.EventJobSucceeded, deliveries[0].EventType)
}

func TestRunnerFailsBadInstance(t *testing.T) {
	r, mem, b := newRunner(t)
	ctx := context.Background()
	req := lineRequest(5)
	req.Description.EdgeWeightType = "GEO"
	req.CallbackURL = "http://example.invalid/hook"
	job, err := mem.CreateJob(ctx, req)
	require.NoError(t, err)

	_, err = r.Run(ctx, job)
	require.ErrorIs(t, err, opt.ErrEdgeWeightType)

	got, err := mem.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.JobFailed, got.Status)
	require.Contains(t, got.Error, "edge weight")
	require.Equal(t, []string{events.JobFailed}, b.types(job.ID))

	deliveries, _ := mem.ListWebhookDeliveries(ctx, job.ID, "", 10)
	require.Len(t, deliveries, 1)
	require.Equal(t, webhooks.EventJobFailed, deliveries[0].EventType)
}

func TestRunnerRunReturnsOutput(t *testing.T) {
	r, mem, _ := newRunner(t)
	ctx := context.Background()
	req := lineRequest(10)
	job, _ := mem.CreateJob(ctx, req)

	out, err := r.Run(ctx, job)
	require.NoError(t, err)
	require.Equal(t, req.Description, out.Description)
	require.NotEmpty(t, out.BestPath)
	require.NotEmpty(t, out.BestSolutionPerformance)
}

func TestRunnerRunCancelledWhileQueued(t *testing.T) {
	mem := store.NewMemory()
	r := NewRunner(mem, &recordBroker{}, nil, opt.DefaultConfig(), 1)
	r.sem <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job, _ := mem.CreateJob(context.Background(), lineRequest(3))
	_, err := r.Run(ctx, job)
	require.ErrorIs(t, err, context.Canceled)

	got, _ := mem.GetJob(context.Background(), job.ID)
	require.Equal(t, model.JobFailed, got.Status)
}

func TestRunnerUsesSavedConfig(t *testing.T) {
	r, mem, _ := newRunner(t)
	ctx := context.Background()

	saved := opt.DefaultConfig()
	saved.PopulationSize = 12
	saved.TwoOpt = true
	require.NoError(t, mem.SaveSolverConfig(ctx, saved))

	_, cfg, err := r.Prepare(ctx, lineRequest(3))
	require.NoError(t, err)
	require.Equal(t, 12, cfg.PopulationSize)
	require.Equal(t, 3, cfg.SurvivorCount)
	require.True(t, cfg.TwoOpt)
	require.Equal(t, int64(5), cfg.Seed)

	bad := lineRequest(3)
	rate := 3.0
	bad.Solver.CrossoverRate = &rate
	_, _, err = r.Prepare(ctx, bad)
	require.ErrorIs(t, err, opt.ErrInvalidConfig)
}

func TestRunnerRejectsDerivedPopulationFromBadFactor(t *testing.T) {
	r, mem, _ := newRunner(t)
	ctx := context.Background()

	saved := opt.DefaultConfig()
	saved.PopulationFactor = 3
	require.NoError(t, mem.SaveSolverConfig(ctx, saved))

	_, _, err := r.Prepare(ctx, lineRequest(3))
	require.ErrorIs(t, err, opt.ErrInvalidConfig)
}
