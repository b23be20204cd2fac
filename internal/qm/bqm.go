package qm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsupportedConstraint is returned by Relax for anything other than
	// a linear equality.
	ErrUnsupportedConstraint = errors.New("qm: unsupported constraint")
	ErrInvalidPenalty        = errors.New("qm: invalid penalty coefficient")
)

// BQM is an unconstrained binary quadratic model.
type BQM struct {
	expr Expr
}

// NewBQM returns a model with no terms.
func NewBQM() *BQM { return &BQM{} }

// Update adds every term of e to the model.
func (b *BQM) Update(e Expr) { b.expr.merge(e, 1) }

// Expr returns a copy of the model as an expression.
func (b *BQM) Expr() Expr { return b.expr.Clone() }

// Energy evaluates the model at s.
func (b *BQM) Energy(s Sample) float64 { return b.expr.Energy(s) }

func (b *BQM) Offset() float64 { return b.expr.offset }
func (b *BQM) Linear(v Var) float64 { return b.expr.Linear(v) }
func (b *BQM) Quadratic(u, v Var) float64 { return b.expr.Quadratic(u, v) }
func (b *BQM) Variables() []Var { return b.expr.Variables() }
func (b *BQM) LinearTerms() []LinearTerm { return b.expr.LinearTerms() }
func (b *BQM) QuadraticTerms() []QuadraticTerm { return b.expr.QuadraticTerms() }
func (b *BQM) NumVariables() int { return len(b.expr.Variables()) }
func (b *BQM) NumInteractions() int { return len(b.expr.quadratic) }

func (b *BQM) MarshalJSON() ([]byte, error) { return json.Marshal(b.expr) }

func (b *BQM) UnmarshalJSON(data []byte) error { return json.Unmarshal(data, &b.expr) }

// Relax folds the constraints of m into its objective as squared-violation
// penalties: objective + penalty * sum((lhs - rhs)^2). The objective offset
// and the rhs^2 constants are kept, so any feasible sample has a BQM energy
// equal to its objective energy.
//
// Only linear equality constraints can be relaxed; anything else is rejected
// before the model is touched.
func Relax(m *CQM, penalty float64) (*BQM, error) {
	if math.IsNaN(penalty) || math.IsInf(penalty, 0) || penalty < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPenalty, penalty)
	}
	for _, c := range m.constraints {
		if c.Sense != Eq {
			return nil, fmt.Errorf("%w: %q has sense %s", ErrUnsupportedConstraint, c.Label, c.Sense)
		}
		if !c.LHS.IsLinear() {
			return nil, fmt.Errorf("%w: %q has quadratic terms", ErrUnsupportedConstraint, c.Label)
		}
	}
	bqm := NewBQM()
	bqm.Update(m.objective)
	for _, c := range m.constraints {
		sq, err := c.LHS.AddConst(-c.RHS).Square()
		if err != nil {
			return nil, err
		}
		bqm.Update(sq.Scale(penalty))
	}
	// Variables only present in constraints with zero penalty still belong to the model.
	for _, v := range m.Variables() {
		bqm.expr.addLinear(v, 0)
	}
	return bqm, nil
}
