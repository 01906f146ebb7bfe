package opt

import (
	"sync"
	"time"
)

// Metrics summarises one run for diagnostics.
type Metrics struct {
	Generations    int           `json:"generations"`
	Evaluations    int           `json:"evaluations"`
	Improvements   int           `json:"improvements"`
	Crossovers     int           `json:"crossovers"`
	Copies         int           `json:"copies"`
	InitialBest    int           `json:"initialBest"`
	BestCost       int           `json:"bestCost"`
	PolishedCost   int           `json:"polishedCost"`
	FinalMeanCost  float64       `json:"finalMeanCost"`
	PopulationSize int           `json:"populationSize"`
	SurvivorCount  int           `json:"survivorCount"`
	Duration       time.Duration `json:"durationNs"`
}

// maxStoredMetrics bounds the number of runs kept; the oldest are evicted first.
var maxStoredMetrics = 1024

var (
	mu    sync.Mutex
	store = map[string]Metrics{}
	order []string // keys by first insertion
)

// RecordMetrics keeps the latest metrics of a run under key (a job id).
func RecordMetrics(key string, m Metrics) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := store[key]; !ok {
		order = append(order, key)
	}
	store[key] = m
	for len(order) > maxStoredMetrics {
		delete(store, order[0])
		order = order[1:]
	}
}

func GetMetrics(key string) (Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := store[key]
	return m, ok
}
