package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"paintshop/internal/opt"
	"paintshop/internal/qm"
)

// Local relaxes the CQM into a BQM and anneals it in-process. Every sample
// is polished with feasibility-preserving swaps and then annotated with the
// CQM objective energy and CQM feasibility, like the hosted service does.
type Local struct {
	Penalty float64 // <= 0 derives one from the objective
	Reads   int
	Sweeps  int
	Seed    int64
}

func NewLocal(penalty float64, reads int, seed int64) *Local {
	return &Local{Penalty: penalty, Reads: reads, Seed: seed}
}

// MinTimeLimit is zero: the local sampler has no floor.
func (l *Local) MinTimeLimit(context.Context, *qm.CQM) (time.Duration, error) { return 0, nil }

func (l *Local) SampleCQM(ctx context.Context, m *qm.CQM, timeLimit time.Duration) (SampleSet, error) {
	penalty := l.Penalty
	if penalty <= 0 {
		penalty = AutoPenalty(m)
	}
	bqm, err := qm.Relax(m, penalty)
	if err != nil {
		return SampleSet{}, err
	}
	results, am, err := opt.Anneal(ctx, bqm, opt.Params{Reads: l.Reads, Sweeps: l.Sweeps, Seed: l.Seed, TimeBudget: timeLimit})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return SampleSet{}, err
	}
	obj := m.Objective()
	groups := opt.SwapGroups(m)
	ss := SampleSet{Info: map[string]any{
		"sampler":       "local",
		"penalty":       penalty,
		"reads":         am.Reads,
		"sweeps":        am.Sweeps,
		"flips":         am.Flips,
		"bestBQMEnergy": am.BestEnergy,
		"seed":          am.Seed,
	}}
	for _, r := range results {
		s := r.Sample
		if m.CheckFeasible(s) {
			s = opt.ImproveBySwaps(obj, s, groups, 10)
		}
		ss.Records = append(ss.Records, Record{
			Sample:         s,
			Energy:         m.ObjectiveEnergy(s),
			Feasible:       m.CheckFeasible(s),
			NumOccurrences: 1,
		})
	}
	return ss, nil
}

// AutoPenalty is twice the largest change a single flip can make to the
// objective, which makes breaking a unit of any integer constraint cost more
// than it can save.
func AutoPenalty(m *qm.CQM) float64 {
	obj := m.Objective()
	field := map[qm.Var]float64{}
	for _, t := range obj.LinearTerms() {
		field[t.V] += math.Abs(t.Bias)
	}
	for _, t := range obj.QuadraticTerms() {
		field[t.U] += math.Abs(t.Bias)
		field[t.V] += math.Abs(t.Bias)
	}
	p := 0.0
	for _, f := range field {
		p = math.Max(p, f)
	}
	if p == 0 {
		return 1
	}
	return 2 * p
}
