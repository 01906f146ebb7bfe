package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cvrpga/internal/opt"
	"cvrpga/internal/store"
)

// Problem is an RFC7807 problem details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// problemInputs are the solver errors caused by the request itself.
var problemInputs = []struct {
	err   error
	title string
}{
	{opt.ErrInvalidConfig, "Invalid solver config"},
	{opt.ErrNoNodes, "Invalid problem"},
	{opt.ErrEdgeWeightType, "Unsupported edge weight type"},
	{opt.ErrCapacity, "Invalid problem"},
	{opt.ErrDepotCount, "Invalid depot count"},
	{opt.ErrDemand, "Demand exceeds capacity"},
}

// problemFor maps err to the status and title reported to clients.
func problemFor(err error) (int, string) {
	for _, in := range problemInputs {
		if errors.Is(err, in.err) {
			return http.StatusBadRequest, in.title
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, store.ErrJobState):
		return http.StatusConflict, "Conflict"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// isInputError reports whether err comes from rejecting the problem or the solver settings.
func isInputError(err error) bool {
	status, _ := problemFor(err)
	return status == http.StatusBadRequest
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := problemFor(err)
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}
