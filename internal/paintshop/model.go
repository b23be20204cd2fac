package paintshop

import (
	"fmt"

	"paintshop/internal/qm"
)

// Mode selects the objective formulation.
type Mode int

const (
	// ModeSwitches minimises sum (x[i+1]-x[i])^2, the switch count itself.
	ModeSwitches Mode = 1
	// ModeSpin minimises sum -(2x[i]-1)(2x[i+1]-1) = 2*switches - (N-1).
	// Any mode other than ModeSwitches selects this form.
	ModeSpin Mode = 2
)

func (m Mode) String() string {
	if m == ModeSwitches {
		return "switches"
	}
	return "spin"
}

// Model is the constrained model of a problem plus the plain switch count,
// which stays available when the objective uses the spin form.
type Model struct {
	CQM      *qm.CQM
	Switches qm.Expr
	Mode     Mode
}

// BuildModel creates one binary variable per sequence position (1 = black),
// the objective selected by mode, and one equality constraint per ensemble
// labelled by the car: the black cars of that ensemble sum to its demand.
func BuildModel(seq Sequence, demand Demand, mode Mode) (*Model, error) {
	if err := Validate(seq, demand); err != nil {
		return nil, err
	}
	x := make([]qm.Expr, len(seq))
	for i := range seq {
		x[i] = qm.Binary(qm.Var(i))
	}

	pairs := len(x) - 1
	switchTerms := make([]qm.Expr, 0, pairs)
	for i := 0; i < pairs; i++ {
		d := x[i+1].Sub(x[i])
		switchTerms = append(switchTerms, d.MustMul(d))
	}
	switches := qm.Sum(switchTerms...)

	cqm := qm.NewCQM()
	if mode == ModeSwitches {
		cqm.SetObjective(switches)
	} else {
		spinTerms := make([]qm.Expr, 0, pairs)
		for i := 0; i < pairs; i++ {
			a := x[i].Scale(2).AddConst(-1)
			b := x[i+1].Scale(2).AddConst(-1)
			spinTerms = append(spinTerms, a.MustMul(b).Neg())
		}
		cqm.SetObjective(qm.Sum(spinTerms...))
	}

	positions := seq.Positions()
	for _, car := range demand.Cars() {
		idx := positions[car]
		terms := make([]qm.Expr, len(idx))
		for k, i := range idx {
			terms[k] = x[i]
		}
		if err := cqm.AddConstraint(string(car), qm.Sum(terms...), qm.Eq, float64(demand[car])); err != nil {
			return nil, fmt.Errorf("constraint for car %q: %w", car, err)
		}
	}
	return &Model{CQM: cqm, Switches: switches, Mode: mode}, nil
}

// Relax returns the penalised unconstrained form of the model.
func (m *Model) Relax(penalty float64) (*qm.BQM, error) {
	return qm.Relax(m.CQM, penalty)
}

// Summary describes model size.
type Summary struct {
	Mode           string `json:"mode"`
	NumVariables   int    `json:"numVariables"`
	NumConstraints int    `json:"numConstraints"`
	NumBiases      int    `json:"numBiases"`
}

func (m *Model) Summary() Summary {
	return Summary{
		Mode:           m.Mode.String(),
		NumVariables:   len(m.CQM.Variables()),
		NumConstraints: m.CQM.NumConstraints(),
		NumBiases:      m.CQM.NumBiases(),
	}
}
