package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"paintshop/internal/logger"
	"paintshop/internal/paintshop"
	"paintshop/internal/qm"
	"paintshop/internal/solver"
	"paintshop/internal/store"
)

// Problem represents an RFC7807 problem details response body.
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

// writeError maps domain errors to problem responses.
func writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, paintshop.ErrInvalidDemand),
		errors.Is(err, paintshop.ErrEmptySequence),
		errors.Is(err, paintshop.ErrInvalidOptions),
		errors.Is(err, qm.ErrInvalidPenalty),
		errors.Is(err, qm.ErrUnsupportedConstraint):
		status = http.StatusBadRequest
	case errors.Is(err, solver.ErrSolver):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		logger.Errorf("%s %s: %s: %v", r.Method, r.URL.Path, title, err)
	}
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
