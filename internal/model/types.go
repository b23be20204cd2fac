package model

import (
	"time"

	"paintshop/internal/paintshop"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ProblemRecord is a stored paint shop problem.
type ProblemRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name,omitempty"`
	Sequence     paintshop.Sequence `json:"sequence"`
	Counts       paintshop.Demand   `json:"counts"`
	NumCars      int                `json:"numCars"`
	NumEnsembles int                `json:"numEnsembles"`
	Seed         *int64             `json:"seed,omitempty"`
	DedupKey     string             `json:"dedupKey"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// Problem returns the sequence and demand of the record.
func (p ProblemRecord) Problem() paintshop.Problem {
	return paintshop.Problem{Sequence: p.Sequence, Counts: p.Counts}
}

// RunRecord is one submission of a problem to a sampler.
type RunRecord struct {
	ID         string            `json:"id"`
	ProblemID  string            `json:"problemId"`
	Sampler    string            `json:"sampler"`
	Mode       int               `json:"mode"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Report     *paintshop.Report `json:"report,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
}

// CreateProblemRequest either names an explicit sequence and demand or asks
// for a generated problem.
type CreateProblemRequest struct {
	Name         string             `json:"name,omitempty"`
	Sequence     paintshop.Sequence `json:"sequence,omitempty"`
	Counts       paintshop.Demand   `json:"counts,omitempty"`
	NumCars      int                `json:"numCars,omitempty"`
	NumEnsembles int                `json:"numEnsembles,omitempty"`
	Seed         *int64             `json:"seed,omitempty"`
	MinBlack     int                `json:"minBlack,omitempty"`
	MaxBlack     int                `json:"maxBlack,omitempty"`
}

// Generated reports whether the request asks for a random problem.
func (r CreateProblemRequest) Generated() bool { return len(r.Sequence) == 0 }

type ModelRequest struct {
	Mode int `json:"mode,omitempty"`
}

// RelaxRequest asks for the penalised model and, optionally, the energies of
// the given positional samples under it.
type RelaxRequest struct {
	Mode    int     `json:"mode,omitempty"`
	Penalty float64 `json:"penalty"`
	Samples [][]int `json:"samples,omitempty"`
}

// SampleEnergy is the evaluation of one submitted sample.
type SampleEnergy struct {
	Sample    []int   `json:"sample"`
	Energy    float64 `json:"energy"`
	Objective float64 `json:"objective"`
	Switches  int     `json:"switches"`
	Feasible  bool    `json:"feasible"`
}

type RunRequest struct {
	ProblemID    string  `json:"problemId"`
	Mode         int     `json:"mode,omitempty"`
	TimeLimitSec float64 `json:"timeLimitSec,omitempty"`
	Sampler      string  `json:"sampler,omitempty"`
	Top          int     `json:"top,omitempty"`
	// Async returns the run immediately; progress arrives as run events.
	Async        bool    `json:"async,omitempty"`
}

// RunEvent is published on a run's event stream.
type RunEvent struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId"`
	Data  map[string]any `json:"data,omitempty"`
	At    time.Time      `json:"at"`
}
