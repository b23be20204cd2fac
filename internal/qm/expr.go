// Package qm implements quadratic models over binary variables: expressions,
// constrained quadratic models (CQM) and binary quadratic models (BQM).
package qm

import (
	"errors"
	"sort"
)

// Var labels a binary decision variable.
type Var int

// Pair is an unordered pair of distinct variables, stored with U < V.
type Pair struct {
	U, V Var
}

func pairOf(u, v Var) Pair {
	if u > v {
		u, v = v, u
	}
	return Pair{U: u, V: v}
}

// ErrDegree is returned when a product would exceed degree two.
var ErrDegree = errors.New("qm: expression degree exceeds 2")

// Expr is a quadratic polynomial over binary variables. Since x*x == x for
// binary x, squares collapse into linear terms.
//
// The zero value is the constant 0. Methods never modify their receiver.
type Expr struct {
	linear    map[Var]float64
	quadratic map[Pair]float64
	offset    float64
}

// Binary returns the expression consisting of the single variable v.
func Binary(v Var) Expr {
	return Expr{linear: map[Var]float64{v: 1}}
}

// Const returns the constant expression c.
func Const(c float64) Expr {
	return Expr{offset: c}
}

// Sum adds expressions together.
func Sum(es ...Expr) Expr {
	var out Expr
	for _, e := range es {
		out.merge(e, 1)
	}
	return out
}

// Clone returns a deep copy.
func (e Expr) Clone() Expr {
	var out Expr
	out.merge(e, 1)
	return out
}

// Offset returns the constant term.
func (e Expr) Offset() float64 { return e.offset }

// Linear returns the linear bias of v (zero if absent).
func (e Expr) Linear(v Var) float64 { return e.linear[v] }

// Quadratic returns the interaction bias between u and v.
func (e Expr) Quadratic(u, v Var) float64 {
	if u == v {
		return 0
	}
	return e.quadratic[pairOf(u, v)]
}

// IsLinear reports whether the expression has no quadratic terms.
func (e Expr) IsLinear() bool { return len(e.quadratic) == 0 }

// IsConstant reports whether the expression has no variable terms.
func (e Expr) IsConstant() bool { return len(e.linear) == 0 && len(e.quadratic) == 0 }

// NumTerms counts linear and quadratic terms.
func (e Expr) NumTerms() int { return len(e.linear) + len(e.quadratic) }

// Add returns e + o.
func (e Expr) Add(o Expr) Expr {
	out := e.Clone()
	out.merge(o, 1)
	return out
}

// Sub returns e - o.
func (e Expr) Sub(o Expr) Expr {
	out := e.Clone()
	out.merge(o, -1)
	return out
}

// AddConst returns e + c.
func (e Expr) AddConst(c float64) Expr {
	out := e.Clone()
	out.offset += c
	return out
}

// Scale returns c * e.
func (e Expr) Scale(c float64) Expr {
	var out Expr
	out.merge(e, c)
	return out
}

// Neg returns -e.
func (e Expr) Neg() Expr { return e.Scale(-1) }

// Mul returns e * o. Both factors must be linear unless one is a constant.
func (e Expr) Mul(o Expr) (Expr, error) {
	switch {
	case o.IsConstant():
		return e.Scale(o.offset), nil
	case e.IsConstant():
		return o.Scale(e.offset), nil
	case !e.IsLinear() || !o.IsLinear():
		return Expr{}, ErrDegree
	}
	out := Const(e.offset * o.offset)
	for v, b := range o.linear {
		out.addLinear(v, e.offset*b)
	}
	for v, a := range e.linear {
		out.addLinear(v, a*o.offset)
	}
	for u, a := range e.linear {
		for v, b := range o.linear {
			out.addQuadratic(u, v, a*b)
		}
	}
	return out, nil
}

// MustMul is Mul for factors known to be linear; it panics on ErrDegree.
func (e Expr) MustMul(o Expr) Expr {
	out, err := e.Mul(o)
	if err != nil {
		panic(err)
	}
	return out
}

// Square returns e * e.
func (e Expr) Square() (Expr, error) { return e.Mul(e) }

// Energy evaluates the expression at s. Variables missing from s count as 0.
func (e Expr) Energy(s Sample) float64 {
	en := e.offset
	for v, b := range e.linear {
		en += b * float64(s[v])
	}
	for p, b := range e.quadratic {
		en += b * float64(s[p.U]) * float64(s[p.V])
	}
	return en
}

// Variables returns every variable with a term in e, sorted.
func (e Expr) Variables() []Var {
	seen := make(map[Var]struct{}, len(e.linear))
	for v := range e.linear {
		seen[v] = struct{}{}
	}
	for p := range e.quadratic {
		seen[p.U] = struct{}{}
		seen[p.V] = struct{}{}
	}
	return sortedVars(seen)
}

// LinearTerms returns the linear terms sorted by variable.
func (e Expr) LinearTerms() []LinearTerm {
	out := make([]LinearTerm, 0, len(e.linear))
	for v, b := range e.linear {
		out = append(out, LinearTerm{V: v, Bias: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].V < out[j].V })
	return out
}

// QuadraticTerms returns the quadratic terms sorted by (U, V).
func (e Expr) QuadraticTerms() []QuadraticTerm {
	out := make([]QuadraticTerm, 0, len(e.quadratic))
	for p, b := range e.quadratic {
		out = append(out, QuadraticTerm{U: p.U, V: p.V, Bias: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].U != out[j].U {
			return out[i].U < out[j].U
		}
		return out[i].V < out[j].V
	})
	return out
}

// LinearTerm is a single linear bias.
type LinearTerm struct {
	V    Var
	Bias float64
}

// QuadraticTerm is a single interaction bias.
type QuadraticTerm struct {
	U, V Var
	Bias float64
}

func (e *Expr) merge(o Expr, c float64) {
	e.offset += c * o.offset
	for v, b := range o.linear {
		e.addLinear(v, c*b)
	}
	for p, b := range o.quadratic {
		e.addQuadratic(p.U, p.V, c*b)
	}
}

func (e *Expr) addLinear(v Var, b float64) {
	if e.linear == nil {
		e.linear = map[Var]float64{}
	}
	e.linear[v] += b
}

func (e *Expr) addQuadratic(u, v Var, b float64) {
	if u == v {
		e.addLinear(u, b)
		return
	}
	if e.quadratic == nil {
		e.quadratic = map[Pair]float64{}
	}
	e.quadratic[pairOf(u, v)] += b
}

func sortedVars(set map[Var]struct{}) []Var {
	out := make([]Var, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
