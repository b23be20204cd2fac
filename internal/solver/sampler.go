// Package solver is the boundary to samplers that solve constrained
// quadratic models: a client for the hosted hybrid service and a local
// annealing sampler.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paintshop/internal/qm"
)

// Sampler solves a CQM within a time limit. A zero time limit lets the
// sampler choose.
type Sampler interface {
	MinTimeLimit(ctx context.Context, m *qm.CQM) (time.Duration, error)
	SampleCQM(ctx context.Context, m *qm.CQM, timeLimit time.Duration) (SampleSet, error)
}

var ErrSolver = errors.New("solver error")

// APIError is a non-2xx response from the hosted service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrSolver, e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return ErrSolver }

// New returns the sampler named by kind: "local" or "hybrid".
func New(kind string, cfg Config) (Sampler, error) {
	switch kind {
	case "", "local":
		return NewLocal(cfg.Penalty, cfg.Reads, cfg.Seed), nil
	case "hybrid":
		return NewHybrid(cfg)
	default:
		return nil, fmt.Errorf("unknown sampler %q (want local or hybrid)", kind)
	}
}
