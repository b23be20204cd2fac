// Package paintshop formulates the multi-car paint shop problem as a
// constrained quadratic model.
//
// A sequence of cars passes through a paint shop; each car is painted black
// or white. Cars of the same ensemble are interchangeable, and each ensemble
// needs a fixed number of black cars. The goal is to minimise the number of
// colour switches between consecutive cars.
//
// Reference: Yarkoni et al., "Multi-car paint shop optimization with quantum
// annealing", https://arxiv.org/pdf/2109.07876.pdf
package paintshop

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Car labels a car ensemble. Cars with the same label are interchangeable.
type Car string

// MarshalYAML writes integer-looking labels as YAML integers.
func (c Car) MarshalYAML() (interface{}, error) {
	if n, err := strconv.Atoi(string(c)); err == nil && strconv.Itoa(n) == string(c) {
		return n, nil
	}
	return string(c), nil
}

// Sequence is the order in which cars enter the paint shop.
type Sequence []Car

// Positions maps each car to the sequence indices it occupies.
func (s Sequence) Positions() map[Car][]int {
	out := map[Car][]int{}
	for i, c := range s {
		out[c] = append(out[c], i)
	}
	return out
}

// Occurrences counts how often each car appears.
func (s Sequence) Occurrences() map[Car]int {
	out := map[Car]int{}
	for _, c := range s {
		out[c]++
	}
	return out
}

// Demand is the number of cars per ensemble that must be painted black.
type Demand map[Car]int

// Cars returns the demand keys sorted.
func (d Demand) Cars() []Car {
	out := make([]Car, 0, len(d))
	for c := range d {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Problem is a sequence together with its black-car demand.
type Problem struct {
	Sequence Sequence `yaml:"sequence" json:"sequence"`
	Counts   Demand   `yaml:"counts" json:"counts"`
}

// Validate checks the problem; see Validate.
func (p Problem) Validate() error { return Validate(p.Sequence, p.Counts) }

var (
	ErrInvalidDemand  = errors.New("invalid demand")
	ErrEmptySequence  = errors.New("empty sequence")
	ErrInvalidOptions = errors.New("invalid generator options")
)

// DemandError describes a demand entry that cannot be satisfied.
type DemandError struct {
	Car         Car
	Demand      int
	Occurrences int
	Reason      string
}

func (e *DemandError) Error() string {
	return fmt.Sprintf("%s: car %q demands %d of %d: %s", ErrInvalidDemand, e.Car, e.Demand, e.Occurrences, e.Reason)
}

func (e *DemandError) Unwrap() error { return ErrInvalidDemand }

// Validate reports the first demand entry, in label order, that names a car
// absent from the sequence or lies outside [0, occurrences].
func Validate(seq Sequence, demand Demand) error {
	if len(seq) == 0 {
		return ErrEmptySequence
	}
	occ := seq.Occurrences()
	for _, c := range demand.Cars() {
		n, d := occ[c], demand[c]
		switch {
		case n == 0:
			return &DemandError{Car: c, Demand: d, Reason: "car not in sequence"}
		case d < 0:
			return &DemandError{Car: c, Demand: d, Occurrences: n, Reason: "negative demand"}
		case d > n:
			return &DemandError{Car: c, Demand: d, Occurrences: n, Reason: "demand exceeds occurrences"}
		}
	}
	return nil
}
