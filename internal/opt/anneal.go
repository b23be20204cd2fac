package opt

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"paintshop/internal/qm"
)

type Params struct {
	Reads       int           // independent restarts
	Sweeps      int           // full passes over the variables per read
	InitialTemp float64       // starting temperature; derived from the model when <= 0
	Cooling     float64       // geometric factor per sweep, in (0,1)
	Seed        int64         // 0 picks a time-based seed
	TimeBudget  time.Duration // optional wall-clock cap; at least one read always runs
}

// Result is the best state found by one read.
type Result struct {
	Sample qm.Sample
	Energy float64
}

type Metrics struct {
	Reads         int
	Sweeps        int
	Flips         int
	AcceptedWorse int
	Improvements  int
	BestEnergy    float64
	InitialTemp   float64
	FinalTemp     float64
	Seed          int64
}

// compiled is an index-addressed view of a BQM for fast flip deltas.
type compiled struct {
	vars   []qm.Var
	linear []float64
	adj    [][]neighbor
	offset float64
}

type neighbor struct {
	j int
	w float64
}

func compile(b *qm.BQM) compiled {
	vars := b.Variables()
	pos := make(map[qm.Var]int, len(vars))
	for i, v := range vars {
		pos[v] = i
	}
	c := compiled{vars: vars, linear: make([]float64, len(vars)), adj: make([][]neighbor, len(vars)), offset: b.Offset()}
	for _, t := range b.LinearTerms() {
		c.linear[pos[t.V]] = t.Bias
	}
	for _, t := range b.QuadraticTerms() {
		i, j := pos[t.U], pos[t.V]
		c.adj[i] = append(c.adj[i], neighbor{j: j, w: t.Bias})
		c.adj[j] = append(c.adj[j], neighbor{j: i, w: t.Bias})
	}
	return c
}

// delta is the energy change of flipping variable i in state x.
func (c compiled) delta(x []int, i int) float64 {
	field := c.linear[i]
	for _, n := range c.adj[i] {
		field += n.w * float64(x[n.j])
	}
	return float64(1-2*x[i]) * field
}

func (c compiled) energy(x []int) float64 {
	e := c.offset
	for i, b := range c.linear {
		e += b * float64(x[i])
	}
	for i, ns := range c.adj {
		for _, n := range ns {
			if n.j > i {
				e += n.w * float64(x[i]*x[n.j])
			}
		}
	}
	return e
}

// scale bounds the energy change of a single flip.
func (c compiled) scale() float64 {
	m := 0.0
	for i, b := range c.linear {
		s := math.Abs(b)
		for _, n := range c.adj[i] {
			s += math.Abs(n.w)
		}
		m = math.Max(m, s)
	}
	return m
}

func (c compiled) sample(x []int) qm.Sample {
	s := make(qm.Sample, len(x))
	for i, v := range c.vars {
		s[v] = x[i]
	}
	return s
}

// Anneal minimises a BQM with single-flip simulated annealing. Each read
// starts from a random state and keeps its best state; results are sorted
// by energy. Cancelling ctx stops after the current sweep and returns the
// reads finished so far together with ctx.Err().
func Anneal(ctx context.Context, b *qm.BQM, p Params) ([]Result, Metrics, error) {
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(p.Seed))
	if p.Reads <= 0 {
		p.Reads = 10
	}
	if p.Sweeps <= 0 {
		p.Sweeps = 1000
	}
	c := compile(b)
	temp0 := p.InitialTemp
	if temp0 <= 0 {
		temp0 = c.scale()
		if temp0 == 0 {
			temp0 = 1
		}
	}
	cool := p.Cooling
	if cool <= 0 || cool >= 1 {
		// end around temp0/1000
		cool = math.Pow(1e-3, 1/float64(p.Sweeps))
	}
	m := Metrics{InitialTemp: temp0, Seed: p.Seed, BestEnergy: math.Inf(1)}
	var deadline time.Time
	if p.TimeBudget > 0 {
		deadline = time.Now().Add(p.TimeBudget)
	}

	n := len(c.vars)
	results := make([]Result, 0, p.Reads)
	for r := 0; r < p.Reads; r++ {
		if r > 0 && !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		x := make([]int, n)
		for i := range x {
			x[i] = rng.Intn(2)
		}
		curr := c.energy(x)
		best := append([]int(nil), x...)
		bestE := curr
		temp := temp0
		for sweep := 0; sweep < p.Sweeps; sweep++ {
			if err := ctx.Err(); err != nil {
				sortResults(results)
				return results, m, err
			}
			m.Sweeps++
			for i := 0; i < n; i++ {
				d := c.delta(x, i)
				if d <= 0 || rng.Float64() < math.Exp(-d/(temp+1e-12)) {
					x[i] = 1 - x[i]
					curr += d
					m.Flips++
					if d > 0 {
						m.AcceptedWorse++
					}
					if curr < bestE-1e-12 {
						bestE = curr
						copy(best, x)
						m.Improvements++
					}
				}
			}
			temp *= cool
		}
		m.FinalTemp = temp
		m.Reads++
		// recompute to shed accumulated rounding
		bestE = c.energy(best)
		if bestE < m.BestEnergy {
			m.BestEnergy = bestE
		}
		results = append(results, Result{Sample: c.sample(best), Energy: bestE})
	}
	sortResults(results)
	return results, m, nil
}

func sortResults(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Energy < rs[j].Energy })
}
