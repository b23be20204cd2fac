package solver

import (
	"sort"

	"paintshop/internal/qm"
)

// Record is one candidate assignment returned by a sampler.
type Record struct {
	Sample         qm.Sample `json:"sample"`
	Energy         float64   `json:"energy"`
	Feasible       bool      `json:"feasible"`
	NumOccurrences int       `json:"numOccurrences"`
}

// SampleSet is an ordered collection of candidates. Operations return new
// sets and leave the receiver untouched.
type SampleSet struct {
	Records []Record       `json:"samples"`
	Info    map[string]any `json:"info,omitempty"`
}

func (ss SampleSet) Len() int { return len(ss.Records) }

// First returns the first record, if any.
func (ss SampleSet) First() (Record, bool) {
	if len(ss.Records) == 0 {
		return Record{}, false
	}
	return ss.Records[0], true
}

// Aggregate merges identical samples, summing occurrences. The first
// position of each distinct sample is kept.
func (ss SampleSet) Aggregate() SampleSet {
	out := SampleSet{Info: ss.Info}
	at := map[string]int{}
	for _, r := range ss.Records {
		n := r.NumOccurrences
		if n <= 0 {
			n = 1
		}
		k := r.Sample.Key()
		if i, ok := at[k]; ok {
			out.Records[i].NumOccurrences += n
			continue
		}
		r.NumOccurrences = n
		at[k] = len(out.Records)
		out.Records = append(out.Records, r)
	}
	return out
}

// Filter keeps records for which keep returns true.
func (ss SampleSet) Filter(keep func(Record) bool) SampleSet {
	out := SampleSet{Info: ss.Info}
	for _, r := range ss.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Feasible keeps records annotated as feasible.
func (ss SampleSet) Feasible() SampleSet {
	return ss.Filter(func(r Record) bool { return r.Feasible })
}

// Lowest sorts by energy (stable) and keeps at most n records; n <= 0 keeps all.
func (ss SampleSet) Lowest(n int) SampleSet {
	recs := append([]Record(nil), ss.Records...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Energy < recs[j].Energy })
	if n > 0 && len(recs) > n {
		recs = recs[:n]
	}
	return SampleSet{Records: recs, Info: ss.Info}
}
