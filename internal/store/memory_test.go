package store

import (
	"context"
	"errors"
	"testing"

	"paintshop/internal/model"
	"paintshop/internal/paintshop"
)

func sampleProblem(seed int64) model.ProblemRecord {
	p, _ := paintshop.Generate(paintshop.GenerateOptions{NumCars: 9, NumEnsembles: 3, Seed: seed})
	return model.ProblemRecord{Sequence: p.Sequence, Counts: p.Counts, Seed: &seed}
}

func TestMemoryProblemDedup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a, created, err := m.SaveProblem(ctx, sampleProblem(1))
	if err != nil || !created {
		t.Fatalf("first save: created=%v err=%v", created, err)
	}
	if a.ID == "" || a.DedupKey == "" || a.NumCars != 9 {
		t.Fatalf("record not filled: %+v", a)
	}
	b, created, err := m.SaveProblem(ctx, sampleProblem(1))
	if err != nil || created || b.ID != a.ID {
		t.Fatalf("second save: created=%v id=%s want %s", created, b.ID, a.ID)
	}
	got, err := m.GetProblem(ctx, a.ID)
	if err != nil || got.DedupKey != a.DedupKey {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := m.GetProblem(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryListProblemsPaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for seed := int64(1); seed <= 5; seed++ {
		if _, _, err := m.SaveProblem(ctx, sampleProblem(seed*100)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	seen := 0
	cursor := ""
	for i := 0; i < 10; i++ {
		items, next, err := m.ListProblems(ctx, cursor, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		seen += len(items)
		if next == "" {
			break
		}
		cursor = next
	}
	if seen != 5 {
		t.Fatalf("paged through %d problems, want 5", seen)
	}
}

func TestMemoryRuns(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.CreateRun(ctx, model.RunRecord{ProblemID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("run for missing problem: %v", err)
	}
	p, _, _ := m.SaveProblem(ctx, sampleProblem(3))
	q, _, _ := m.SaveProblem(ctx, sampleProblem(4))
	r, err := m.CreateRun(ctx, model.RunRecord{ProblemID: p.ID, Sampler: "local"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if r.Status != model.RunRunning {
		t.Fatalf("status %q, want running", r.Status)
	}
	if _, err := m.CreateRun(ctx, model.RunRecord{ProblemID: q.ID, Sampler: "local"}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	r.Status = model.RunCompleted
	if err := m.UpdateRun(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := m.GetRun(ctx, r.ID)
	if got.Status != model.RunCompleted {
		t.Fatalf("status %q after update", got.Status)
	}
	items, _, _ := m.ListRuns(ctx, p.ID, "", 0)
	if len(items) != 1 || items[0].ID != r.ID {
		t.Fatalf("runs for problem: %+v", items)
	}
	all, _, _ := m.ListRuns(ctx, "", "", 0)
	if len(all) != 2 {
		t.Fatalf("all runs: %d", len(all))
	}
	if err := m.UpdateRun(ctx, model.RunRecord{ID: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestMemoryProblemIsolatedFromCaller(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	in := sampleProblem(4)
	saved, _, err := m.SaveProblem(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	car := in.Sequence[0]
	want := in.Counts[car]
	in.Counts[car] = want + 100
	in.Sequence[0] = "mutated"
	saved.Counts[car] = -1

	got, err := m.GetProblem(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Counts[car] != want || got.Sequence[0] != car {
		t.Fatalf("stored problem changed through caller: %+v", got)
	}
	got.Counts[car] = -7
	again, _ := m.GetProblem(ctx, saved.ID)
	if again.Counts[car] != want {
		t.Fatalf("returned record shares the stored demand")
	}
}
