package qm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Sense is the comparison of a constraint.
type Sense string

const (
	Eq Sense = "=="
	Le Sense = "<="
	Ge Sense = ">="
)

// FeasibilityTol is the absolute tolerance used by CheckFeasible.
const FeasibilityTol = 1e-6

var ErrDuplicateConstraint = errors.New("qm: duplicate constraint label")

// Constraint is lhs (sense) rhs.
type Constraint struct {
	Label string  `json:"label"`
	LHS   Expr    `json:"lhs"`
	Sense Sense   `json:"sense"`
	RHS   float64 `json:"rhs"`
}

// Violation returns lhs(s) - rhs.
func (c Constraint) Violation(s Sample) float64 {
	return c.LHS.Energy(s) - c.RHS
}

// Satisfied reports whether s meets the constraint within tol.
func (c Constraint) Satisfied(s Sample, tol float64) bool {
	d := c.Violation(s)
	switch c.Sense {
	case Le:
		return d <= tol
	case Ge:
		return d >= -tol
	default:
		return math.Abs(d) <= tol
	}
}

// CQM is a quadratic objective subject to labelled constraints.
type CQM struct {
	objective   Expr
	constraints []Constraint
	index       map[string]int
}

// NewCQM returns an empty model.
func NewCQM() *CQM {
	return &CQM{index: map[string]int{}}
}

// SetObjective replaces the objective with a copy of e.
func (m *CQM) SetObjective(e Expr) { m.objective = e.Clone() }

// Objective returns a copy of the objective.
func (m *CQM) Objective() Expr { return m.objective.Clone() }

// ObjectiveEnergy evaluates the objective at s.
func (m *CQM) ObjectiveEnergy(s Sample) float64 { return m.objective.Energy(s) }

// AddConstraint appends lhs (sense) rhs under label.
func (m *CQM) AddConstraint(label string, lhs Expr, sense Sense, rhs float64) error {
	if _, ok := m.index[label]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateConstraint, label)
	}
	switch sense {
	case Eq, Le, Ge:
	default:
		return fmt.Errorf("qm: unknown sense %q", sense)
	}
	m.index[label] = len(m.constraints)
	m.constraints = append(m.constraints, Constraint{Label: label, LHS: lhs.Clone(), Sense: sense, RHS: rhs})
	return nil
}

// Constraints returns the constraints in insertion order.
func (m *CQM) Constraints() []Constraint {
	out := make([]Constraint, len(m.constraints))
	copy(out, m.constraints)
	return out
}

// Constraint looks a constraint up by label.
func (m *CQM) Constraint(label string) (Constraint, bool) {
	i, ok := m.index[label]
	if !ok {
		return Constraint{}, false
	}
	return m.constraints[i], true
}

// NumConstraints returns the number of constraints.
func (m *CQM) NumConstraints() int { return len(m.constraints) }

// Variables returns every variable used by the objective or a constraint.
func (m *CQM) Variables() []Var {
	set := map[Var]struct{}{}
	for _, v := range m.objective.Variables() {
		set[v] = struct{}{}
	}
	for _, c := range m.constraints {
		for _, v := range c.LHS.Variables() {
			set[v] = struct{}{}
		}
	}
	return sortedVars(set)
}

// NumBiases counts the terms across objective and constraints.
func (m *CQM) NumBiases() int {
	n := m.objective.NumTerms()
	for _, c := range m.constraints {
		n += c.LHS.NumTerms()
	}
	return n
}

// CheckFeasible reports whether s satisfies every constraint.
func (m *CQM) CheckFeasible(s Sample) bool {
	for _, c := range m.constraints {
		if !c.Satisfied(s, FeasibilityTol) {
			return false
		}
	}
	return true
}

// Violations returns lhs-rhs for every constraint s does not satisfy.
func (m *CQM) Violations(s Sample) map[string]float64 {
	out := map[string]float64{}
	for _, c := range m.constraints {
		if !c.Satisfied(s, FeasibilityTol) {
			out[c.Label] = c.Violation(s)
		}
	}
	return out
}

type cqmJSON struct {
	Objective   Expr         `json:"objective"`
	Constraints []Constraint `json:"constraints"`
}

func (m *CQM) MarshalJSON() ([]byte, error) {
	cs := m.constraints
	if cs == nil {
		cs = []Constraint{}
	}
	return json.Marshal(cqmJSON{Objective: m.objective, Constraints: cs})
}

func (m *CQM) UnmarshalJSON(data []byte) error {
	var in cqmJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := NewCQM()
	out.SetObjective(in.Objective)
	for _, c := range in.Constraints {
		if err := out.AddConstraint(c.Label, c.LHS, c.Sense, c.RHS); err != nil {
			return err
		}
	}
	*m = *out
	return nil
}
