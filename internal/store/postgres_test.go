package store

import (
	"encoding/hex"
	"testing"

	"paintshop/internal/paintshop"
)

func TestComputeProblemKeyStable(t *testing.T) {
	a := paintshop.Problem{Sequence: paintshop.Sequence{"1", "2", "1"}, Counts: paintshop.Demand{"1": 1, "2": 0}}
	b := paintshop.Problem{Sequence: paintshop.Sequence{"1", "2", "1"}, Counts: paintshop.Demand{"2": 0, "1": 1}}
	if computeProblemKey(a) != computeProblemKey(b) {
		t.Fatalf("map order must not change the key")
	}
	c := paintshop.Problem{Sequence: paintshop.Sequence{"2", "1", "1"}, Counts: a.Counts}
	if computeProblemKey(a) == computeProblemKey(c) {
		t.Fatalf("different sequences share a key")
	}
}

func TestComputeProblemKeyShape(t *testing.T) {
	got := computeProblemKey(paintshop.Problem{Sequence: paintshop.Sequence{"a"}})
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	if got != computeProblemKey(paintshop.Problem{Sequence: paintshop.Sequence{"a"}, Counts: paintshop.Demand{}}) {
		t.Fatalf("nil and empty counts must hash alike")
	}
}

func TestNullHelpers(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty -> nil expected")
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("non-empty -> value expected, got %v", v)
	}
	if v := nullInt64(nil); v != nil {
		t.Fatalf("nil seed -> nil expected")
	}
	seed := int64(7)
	if v := nullInt64(&seed); v != int64(7) {
		t.Fatalf("seed -> 7 expected, got %v", v)
	}
	if v, err := reportJSON(nil); err != nil || v != nil {
		t.Fatalf("nil report -> nil expected, got %v %v", v, err)
	}
}
