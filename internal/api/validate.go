package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cvrpga/internal/model"
)

func validateSolveRequest(req *model.SolveRequest, maxGenerations int) error {
	if err := req.Description.Validate(); err != nil {
		return err
	}
	if req.Generations < 1 || req.Generations > maxGenerations {
		return fmt.Errorf("generations must be in [1,%d], got %d", maxGenerations, req.Generations)
	}
	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("callbackUrl must be an absolute http(s) URL: %q", req.CallbackURL)
		}
	} else if req.CallbackSecret != "" {
		return fmt.Errorf("callbackSecret without callbackUrl")
	}
	return nil
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
