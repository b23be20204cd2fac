package paintshop

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
)

// GenerateOptions controls random problem generation. MinBlack and MaxBlack
// override the per-ensemble demand bounds when non-zero.
type GenerateOptions struct {
	NumCars      int
	NumEnsembles int
	Seed         int64
	MinBlack     int
	MaxBlack     int
}

// DefaultGenerateOptions returns 10 cars over 3 ensembles with seed 111.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{NumCars: 10, NumEnsembles: 3, Seed: 111}
}

// Generate draws a uniformly random sequence over NumEnsembles labels and,
// for every ensemble present with n cars, a demand in [lo, hi) where lo
// defaults to n/3 and hi to 2n/3. If hi <= lo then hi = lo+1. Overrides
// that yield a demand above an ensemble's size fail with ErrInvalidDemand.
//
// The same options always produce the same problem.
func Generate(opts GenerateOptions) (Problem, error) {
	if opts.NumCars < 1 {
		return Problem{}, fmt.Errorf("%w: numCars must be >= 1, got %d", ErrInvalidOptions, opts.NumCars)
	}
	if opts.NumEnsembles < 1 {
		return Problem{}, fmt.Errorf("%w: numEnsembles must be >= 1, got %d", ErrInvalidOptions, opts.NumEnsembles)
	}
	if opts.MinBlack < 0 || opts.MaxBlack < 0 {
		return Problem{}, fmt.Errorf("%w: black bounds must be >= 0", ErrInvalidOptions)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	raw := make([]int, opts.NumCars)
	counts := make([]int, opts.NumEnsembles)
	for i := range raw {
		raw[i] = rng.Intn(opts.NumEnsembles)
		counts[raw[i]]++
	}
	seq := make(Sequence, len(raw))
	for i, r := range raw {
		seq[i] = carLabel(r)
	}

	demand := Demand{}
	for label, n := range counts {
		if n == 0 {
			continue
		}
		lo, hi := n/3, 2*n/3
		if opts.MinBlack != 0 {
			lo = opts.MinBlack
		}
		if opts.MaxBlack != 0 {
			hi = opts.MaxBlack
		}
		if hi <= lo {
			hi = lo + 1
		}
		demand[carLabel(label)] = lo + rng.Intn(hi-lo)
	}
	p := Problem{Sequence: seq, Counts: demand}
	if err := p.Validate(); err != nil {
		return Problem{}, err
	}
	return p, nil
}

// DefaultProblemPath is where a generated problem is saved when no name is given.
func DefaultProblemPath(opts GenerateOptions) string {
	return filepath.Join("data", fmt.Sprintf("sequence_%d_%d_%d.yml", opts.NumCars, opts.NumEnsembles, opts.Seed))
}

func carLabel(i int) Car { return Car(strconv.Itoa(i)) }
