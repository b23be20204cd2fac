package paintshop

import (
	"context"
	"fmt"
	"time"

	"paintshop/internal/logger"
	"paintshop/internal/qm"
	"paintshop/internal/solver"
)

// NoFeasibleMessage is reported when the sampler returns nothing feasible.
const NoFeasibleMessage = "No feasible solution found."

// RunOptions configures Run. Mode is passed to BuildModel unchanged, so the
// zero value selects the spin form. Top defaults to 3.
type RunOptions struct {
	Mode      Mode
	TimeLimit time.Duration
	Top       int
}

// Solution is one reported feasible candidate.
type Solution struct {
	Rank           int       `json:"rank"`
	Sample         qm.Sample `json:"sample"`
	Objective      float64   `json:"objective"`
	Switches       float64   `json:"switches"`
	Colors         string    `json:"colors"`
	NumOccurrences int       `json:"numOccurrences"`
}

// Report summarises a run.
type Report struct {
	NumCars       int            `json:"numCars"`
	NumEnsembles  int            `json:"numEnsembles"`
	Demand        Demand         `json:"demand"`
	Mode          Mode           `json:"mode"`
	Model         Summary        `json:"model"`
	TimeLimitSec  float64        `json:"timeLimitSec,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	Candidates    int            `json:"candidates"`
	FeasibleCount int            `json:"feasible"`
	Message       string         `json:"message,omitempty"`
	Solutions     []Solution     `json:"solutions"`
	SamplerInfo   map[string]any `json:"samplerInfo,omitempty"`
}

// Best returns the lowest-energy solution, if any.
func (r Report) Best() (Solution, bool) {
	if len(r.Solutions) == 0 {
		return Solution{}, false
	}
	return r.Solutions[0], true
}

// Run builds the model for p, submits it to s and reports the best feasible
// candidates. A requested time limit below the sampler's minimum is raised
// to the minimum with a warning. An empty feasible set is not an error.
func Run(ctx context.Context, s solver.Sampler, p Problem, opts RunOptions) (Report, error) {
	if opts.Top <= 0 {
		opts.Top = 3
	}
	m, err := BuildModel(p.Sequence, p.Counts, opts.Mode)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		NumCars:      len(p.Sequence),
		NumEnsembles: len(p.Counts),
		Demand:       p.Counts,
		Mode:         opts.Mode,
		Model:        m.Summary(),
		Solutions:    []Solution{},
	}

	limit := opts.TimeLimit
	floor, err := s.MinTimeLimit(ctx, m.CQM)
	if err != nil {
		return rep, fmt.Errorf("min time limit: %w", err)
	}
	if limit > 0 && limit < floor {
		msg := fmt.Sprintf("Time limit is less than the minimum allowed, changing to the minimum allowed %v", floor)
		logger.Warnf("%s (requested %v)", msg, limit)
		rep.Warnings = append(rep.Warnings, msg)
		limit = floor
	}
	rep.TimeLimitSec = limit.Seconds()

	ss, err := s.SampleCQM(ctx, m.CQM, limit)
	if err != nil {
		return rep, fmt.Errorf("sample: %w", err)
	}
	rep.SamplerInfo = ss.Info
	agg := ss.Aggregate()
	rep.Candidates = agg.Len()
	feasible := agg.Filter(func(r solver.Record) bool { return m.CQM.CheckFeasible(r.Sample) })
	rep.FeasibleCount = feasible.Len()
	if feasible.Len() == 0 {
		rep.Message = NoFeasibleMessage
		return rep, nil
	}
	for i, r := range feasible.Lowest(opts.Top).Records {
		a := Named(r.Sample).WithLength(len(p.Sequence))
		rep.Solutions = append(rep.Solutions, Solution{
			Rank:           i + 1,
			Sample:         r.Sample,
			Objective:      m.CQM.ObjectiveEnergy(r.Sample),
			Switches:       m.Switches.Energy(r.Sample),
			Colors:         a.Strip(),
			NumOccurrences: r.NumOccurrences,
		})
	}
	return rep, nil
}
