package opt

import (
	"sort"
	"strconv"
	"strings"

	"paintshop/internal/qm"
)

// SwapGroups partitions the variables of m's linear constraints so that
// exchanging the values of two variables in one group leaves every
// constraint's left-hand side unchanged: members share identical
// coefficients in every constraint. Groups with fewer than two members are
// dropped, as are variables that appear in quadratic constraint terms.
func SwapGroups(m *qm.CQM) [][]qm.Var {
	sig := map[qm.Var][]string{}
	excluded := map[qm.Var]bool{}
	for _, c := range m.Constraints() {
		for _, t := range c.LHS.QuadraticTerms() {
			excluded[t.U], excluded[t.V] = true, true
		}
		for _, t := range c.LHS.LinearTerms() {
			if t.Bias == 0 {
				continue
			}
			sig[t.V] = append(sig[t.V], c.Label+"="+strconv.FormatFloat(t.Bias, 'g', -1, 64))
		}
	}
	// variables missing from every constraint are free and share the empty signature
	for _, v := range m.Variables() {
		if _, ok := sig[v]; !ok {
			sig[v] = nil
		}
	}
	byKey := map[string][]qm.Var{}
	for v, parts := range sig {
		if excluded[v] {
			continue
		}
		sort.Strings(parts)
		k := strings.Join(parts, "|")
		byKey[k] = append(byKey[k], v)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := [][]qm.Var{}
	for _, k := range keys {
		g := byKey[k]
		if len(g) < 2 {
			continue
		}
		sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
		out = append(out, g)
	}
	return out
}

// ImproveBySwaps is a first-improvement local search: it exchanges the
// values of two variables of the same group whenever that lowers obj, and
// stops after a pass without improvement or after iterations passes.
// Constraint sums are preserved, so a feasible sample stays feasible.
func ImproveBySwaps(obj qm.Expr, s qm.Sample, groups [][]qm.Var, iterations int) qm.Sample {
	if iterations <= 0 {
		iterations = 1
	}
	best := s.Clone()
	bestE := obj.Energy(best)
	for it := 0; it < iterations; it++ {
		improved := false
		for _, g := range groups {
			for i := 0; i < len(g)-1; i++ {
				for k := i + 1; k < len(g); k++ {
					u, v := g[i], g[k]
					if best[u] == best[v] {
						continue
					}
					best[u], best[v] = best[v], best[u]
					e := obj.Energy(best)
					if e+1e-9 < bestE {
						bestE = e
						improved = true
						continue
					}
					best[u], best[v] = best[v], best[u]
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}
