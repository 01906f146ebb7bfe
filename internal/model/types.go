package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// EdgeWeightEuclidean2D is the only supported edge weight type tag.
const EdgeWeightEuclidean2D = "EUC_2D"

// Node is a single customer or the depot, keyed by its external id in Description.Nodes.
type Node struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Demand  int     `json:"demand"`
	IsDepot bool    `json:"isDepot"`
}

// Description is the raw problem input as read from a problem file or a solve request.
type Description struct {
	Name           string          `json:"name,omitempty"`
	Capacity       int             `json:"capacity"`
	EdgeWeightType string          `json:"edgeWeightType"`
	Nodes          map[string]Node `json:"nodes"`
}

// Validate performs structural checks only; domain rules (single depot, demand
// vs capacity) are enforced when the solver instance is built.
func (d Description) Validate() error {
	if len(d.Nodes) == 0 {
		return errors.New("description: nodes must not be empty")
	}
	if strings.TrimSpace(d.EdgeWeightType) == "" {
		return errors.New("description: edgeWeightType is required")
	}
	for id, n := range d.Nodes {
		if strings.TrimSpace(id) == "" {
			return errors.New("description: node id must not be empty")
		}
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsInf(n.X, 0) || math.IsInf(n.Y, 0) {
			return fmt.Errorf("description: node %q has non-finite coordinates", id)
		}
		if n.Demand < 0 {
			return fmt.Errorf("description: node %q has negative demand %d", id, n.Demand)
		}
	}
	return nil
}

// Improvement records a strict improvement of the best cost at a generation.
// It is encoded as a two element array [generation, cost].
type Improvement struct {
	Generation int
	Cost       int
}

func (i Improvement) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{i.Generation, i.Cost})
}

func (i *Improvement) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("improvement: expected [generation, cost]: %w", err)
	}
	i.Generation, i.Cost = pair[0], pair[1]
	return nil
}

// Output is the solver report written by the CLI and returned by the service.
// BestCost is the cost of BestPath. When the plan was polished after the last
// generation it is lower than the last BestSolutionPerformance entry.
type Output struct {
	Description             Description   `json:"description"`
	BestPath                [][]string    `json:"bestPath"`
	BestSolutionPerformance []Improvement `json:"bestSolutionPerformance"`
	BestCost                int           `json:"bestCost"`
	Generations             int           `json:"generations"`
	Seed                    int64         `json:"seed"`
}

// SolverOverrides carries optional per-request solver settings. Nil fields keep the
// server defaults.
type SolverOverrides struct {
	PopulationSize *int     `json:"populationSize,omitempty"`
	SurvivorCount  *int     `json:"survivorCount,omitempty"`
	EliteCount     *int     `json:"eliteCount,omitempty"`
	CrossoverRate  *float64 `json:"crossoverRate,omitempty"`
	MutationRate   *float64 `json:"mutationRate,omitempty"`
	MutationScope  *string  `json:"mutationScope,omitempty"`
	MaxSwath       *int     `json:"maxSwath,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	TwoOpt         *bool    `json:"twoOpt,omitempty"`
}

type SolveRequest struct {
	Description    Description     `json:"description"`
	Generations    int             `json:"generations"`
	Solver         SolverOverrides `json:"solver,omitempty"`
	CallbackURL    string          `json:"callbackUrl,omitempty"`
	CallbackSecret string          `json:"callbackSecret,omitempty"`
	Wait           bool            `json:"wait,omitempty"`
}

// Job statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

type JobProgress struct {
	Generation     int `json:"generation"`
	BestCost       int `json:"bestCost"`
	BestGeneration int `json:"bestGeneration"`
}

// Job is a solve request tracked by the service.
type Job struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Request    SolveRequest `json:"request"`
	Progress   *JobProgress `json:"progress,omitempty"`
	Result     *Output      `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	StartedAt  *time.Time   `json:"startedAt,omitempty"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool { return j.Status == JobSucceeded || j.Status == JobFailed }
