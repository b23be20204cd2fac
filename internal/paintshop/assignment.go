package paintshop

import (
	"strings"

	"paintshop/internal/qm"
)

// Assignment is a colouring of the sequence, 1 for black and 0 for white.
// Build one with Named or Positional.
type Assignment struct {
	sample qm.Sample
	n      int // positions to render; 0 means the sample's own variables
}

// Named wraps a sample keyed by sequence position.
func Named(s qm.Sample) Assignment { return Assignment{sample: s.Clone()} }

// Positional wraps values where values[i] is the colour of car i.
func Positional(values []int) Assignment { return Assignment{sample: qm.SampleFromSlice(values)} }

// WithLength fixes the assignment to n positions. Positions absent from the
// sample are white.
func (a Assignment) WithLength(n int) Assignment {
	a.n = n
	return a
}

// Sample returns the assignment keyed by position.
func (a Assignment) Sample() qm.Sample { return a.sample.Clone() }

// Values returns colours in position order.
func (a Assignment) Values() []int {
	if a.n <= 0 {
		return a.sample.Values()
	}
	out := make([]int, a.n)
	for i := range out {
		out[i] = a.sample[qm.Var(i)]
	}
	return out
}

// Switches counts positions where the colour differs from the next car.
func (a Assignment) Switches() int {
	v := a.Values()
	n := 0
	for i := 0; i+1 < len(v); i++ {
		if v[i] != v[i+1] {
			n++
		}
	}
	return n
}

// Strip renders the colours as a row of B (black) and W (white).
func (a Assignment) Strip() string {
	var b strings.Builder
	for _, v := range a.Values() {
		if v != 0 {
			b.WriteByte('B')
		} else {
			b.WriteByte('W')
		}
	}
	return b.String()
}
