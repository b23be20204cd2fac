package qm

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Sample assigns a 0/1 value to variables.
type Sample map[Var]int

// SampleFromSlice treats values[i] as the value of variable i.
func SampleFromSlice(values []int) Sample {
	s := make(Sample, len(values))
	for i, v := range values {
		s[Var(i)] = v
	}
	return s
}

// Values returns the sample's values ordered by variable.
func (s Sample) Values() []int {
	vars := s.Variables()
	out := make([]int, len(vars))
	for i, v := range vars {
		out[i] = s[v]
	}
	return out
}

// Variables returns the sample's variables sorted.
func (s Sample) Variables() []Var {
	set := make(map[Var]struct{}, len(s))
	for v := range s {
		set[v] = struct{}{}
	}
	return sortedVars(set)
}

// Key is a canonical string form used to aggregate identical samples.
func (s Sample) Key() string {
	vars := s.Variables()
	b := make([]byte, 0, len(vars)*4)
	for _, v := range vars {
		b = strconv.AppendInt(b, int64(v), 10)
		b = append(b, '=')
		b = strconv.AppendInt(b, int64(s[v]), 10)
		b = append(b, ';')
	}
	return string(b)
}

// Clone returns a copy of s.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	for v, x := range s {
		out[v] = x
	}
	return out
}

// MarshalJSON encodes the sample as an object keyed by variable.
func (s Sample) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, len(s))
	for v, x := range s {
		m[strconv.Itoa(int(v))] = x
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts an object keyed by variable or a positional array.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = SampleFromSlice(arr)
		return nil
	}
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(Sample, len(m))
	for k, x := range m {
		v, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("qm: bad variable label %q: %w", k, err)
		}
		out[Var(v)] = x
	}
	*s = out
	return nil
}

type exprJSON struct {
	Linear    [][2]float64 `json:"linear"`
	Quadratic [][3]float64 `json:"quadratic"`
	Offset    float64      `json:"offset"`
}

// MarshalJSON encodes linear terms as [v, bias] and quadratic terms as
// [u, v, bias], both sorted.
func (e Expr) MarshalJSON() ([]byte, error) {
	out := exprJSON{Linear: [][2]float64{}, Quadratic: [][3]float64{}, Offset: e.offset}
	for _, t := range e.LinearTerms() {
		out.Linear = append(out.Linear, [2]float64{float64(t.V), t.Bias})
	}
	for _, t := range e.QuadraticTerms() {
		out.Quadratic = append(out.Quadratic, [3]float64{float64(t.U), float64(t.V), t.Bias})
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var in exprJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Const(in.Offset)
	for _, t := range in.Linear {
		out.addLinear(Var(t[0]), t[1])
	}
	for _, t := range in.Quadratic {
		out.addQuadratic(Var(t[0]), Var(t[1]), t[2])
	}
	*e = out
	return nil
}
