package paintshop

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paintshop/internal/qm"
)

func scenario() (Sequence, Demand) {
	return Sequence{"1", "2", "3", "1", "2", "3"}, Demand{"1": 1, "2": 1, "3": 1}
}

var scenarioSamples = []struct {
	name     string
	sample   qm.Sample
	feasible bool
	mode1    float64
	mode2    float64
	switches float64
	relaxed  float64 // mode 1, penalty 10
}{
	{"one block", qm.Sample{0: 1, 1: 1, 2: 1, 3: 0, 4: 0, 5: 0}, true, 1, -3, 1, 1},
	{"over demand", qm.Sample{0: 1, 1: 1, 2: 1, 3: 1, 4: 0, 5: 0}, false, 1, -3, 1, 11},
	{"alternating", qm.Sample{0: 1, 1: 0, 2: 1, 3: 0, 4: 1, 5: 0}, true, 5, 5, 5, 5},
}

func TestScenarioModeSwitches(t *testing.T) {
	seq, demand := scenario()
	m, err := BuildModel(seq, demand, ModeSwitches)
	require.NoError(t, err)
	for _, tc := range scenarioSamples {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.feasible, m.CQM.CheckFeasible(tc.sample))
			assert.InDelta(t, tc.mode1, m.CQM.ObjectiveEnergy(tc.sample), 1e-9)
			assert.InDelta(t, tc.switches, m.Switches.Energy(tc.sample), 1e-9)
		})
	}
}

func TestScenarioModeSpin(t *testing.T) {
	seq, demand := scenario()
	m, err := BuildModel(seq, demand, ModeSpin)
	require.NoError(t, err)
	for _, tc := range scenarioSamples {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.feasible, m.CQM.CheckFeasible(tc.sample))
			assert.InDelta(t, tc.mode2, m.CQM.ObjectiveEnergy(tc.sample), 1e-9)
			assert.InDelta(t, tc.switches, m.Switches.Energy(tc.sample), 1e-9)
		})
	}
}

func TestScenarioRelaxed(t *testing.T) {
	seq, demand := scenario()
	m, err := BuildModel(seq, demand, ModeSwitches)
	require.NoError(t, err)
	bqm, err := m.Relax(10)
	require.NoError(t, err)
	for _, tc := range scenarioSamples {
		assert.InDelta(t, tc.relaxed, bqm.Energy(tc.sample), 1e-9, tc.name)
	}
}

func TestConstraintsKeyedByCar(t *testing.T) {
	seq, demand := scenario()
	m, err := BuildModel(seq, demand, ModeSwitches)
	require.NoError(t, err)
	require.Equal(t, 3, m.CQM.NumConstraints())
	c, ok := m.CQM.Constraint("2")
	require.True(t, ok)
	assert.Equal(t, qm.Eq, c.Sense)
	assert.Equal(t, 1.0, c.RHS)
	assert.Equal(t, []qm.Var{1, 4}, c.LHS.Variables())
}

// randomProblem draws a sequence and a feasible sample together with the
// demand that sample meets.
func randomProblem(rng *rand.Rand) (Sequence, Demand, qm.Sample) {
	n := 1 + rng.Intn(12)
	k := 1 + rng.Intn(4)
	seq := make(Sequence, n)
	s := make(qm.Sample, n)
	demand := Demand{}
	for i := range seq {
		seq[i] = carLabel(rng.Intn(k))
		s[qm.Var(i)] = rng.Intn(2)
		demand[seq[i]] += s[qm.Var(i)]
	}
	return seq, demand, s
}

func TestPropertiesRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2021))
	for trial := 0; trial < 200; trial++ {
		seq, demand, s := randomProblem(rng)
		n := len(seq)
		switches := float64(Named(s).Switches())

		m1, err := BuildModel(seq, demand, ModeSwitches)
		require.NoError(t, err)
		m2, err := BuildModel(seq, demand, Mode(7))
		require.NoError(t, err)

		// constraint lhs equals demand at a feasible sample
		require.True(t, m1.CQM.CheckFeasible(s))
		for _, c := range m1.CQM.Constraints() {
			assert.InDelta(t, float64(demand[Car(c.Label)]), c.LHS.Energy(s), 1e-9)
		}
		// switch-count objective
		assert.InDelta(t, switches, m1.CQM.ObjectiveEnergy(s), 1e-9)
		// spin objective = 2*switches - (N-1)
		assert.InDelta(t, 2*switches-float64(n-1), m2.CQM.ObjectiveEnergy(s), 1e-9)
		assert.InDelta(t, switches, m2.Switches.Energy(s), 1e-9)

		penalty := float64(1 + rng.Intn(20))
		bqm, err := m1.Relax(penalty)
		require.NoError(t, err)
		// feasible: zero penalty contribution
		assert.InDelta(t, m1.CQM.ObjectiveEnergy(s), bqm.Energy(s), 1e-9)

		// flip one position: penalty grows by the squared violation
		flip := s.Clone()
		v := qm.Var(rng.Intn(n))
		flip[v] = 1 - flip[v]
		var viol float64
		for _, c := range m1.CQM.Constraints() {
			d := c.Violation(flip)
			viol += d * d
		}
		assert.InDelta(t, m1.CQM.ObjectiveEnergy(flip)+penalty*viol, bqm.Energy(flip), 1e-9)
		if _, inDemand := demand[seq[v]]; inDemand {
			assert.False(t, m1.CQM.CheckFeasible(flip))
		}
	}
}

func TestSingleCarSequence(t *testing.T) {
	m, err := BuildModel(Sequence{"a"}, Demand{"a": 1}, ModeSwitches)
	require.NoError(t, err)
	obj := m.CQM.Objective()
	assert.True(t, obj.IsConstant())
	assert.Zero(t, obj.Offset())
	assert.Zero(t, m.Switches.NumTerms())
	assert.True(t, m.CQM.CheckFeasible(qm.Sample{0: 1}))

	m, err = BuildModel(Sequence{"a"}, Demand{}, ModeSpin)
	require.NoError(t, err)
	assert.Zero(t, m.CQM.ObjectiveEnergy(qm.Sample{0: 1}))
}

func TestBuildModelRejectsInvalidDemand(t *testing.T) {
	seq, _ := scenario()
	cases := map[string]Demand{
		"absent car":   {"9": 1},
		"negative":     {"1": -1},
		"exceeds":      {"1": 3},
		"one bad of 3": {"1": 1, "2": 5, "3": 0},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildModel(seq, d, ModeSwitches)
			require.ErrorIs(t, err, ErrInvalidDemand)
			var de *DemandError
			require.True(t, errors.As(err, &de))
		})
	}
	_, err := BuildModel(nil, Demand{}, ModeSwitches)
	require.ErrorIs(t, err, ErrEmptySequence)
}
