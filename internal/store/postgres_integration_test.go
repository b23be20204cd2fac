//go:build postgres_integration

package store

import (
	"os"
	"testing"
	"time"

	"paintshop/internal/model"
	"paintshop/internal/paintshop"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.MigrateDir("../../db/migrations"); err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}
	if err := p.MigrateDir("../../db/migrations"); err != nil {
		t.Fatalf("MigrateDir twice: %v", err)
	}

	pr, err := paintshop.Generate(paintshop.GenerateOptions{NumCars: 12, NumEnsembles: 3, Seed: time.Now().UnixNano()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec, created, err := p.SaveProblem(t.Context(), model.ProblemRecord{Sequence: pr.Sequence, Counts: pr.Counts})
	if err != nil || !created {
		t.Fatalf("SaveProblem: created=%v err=%v", created, err)
	}
	again, created, err := p.SaveProblem(t.Context(), model.ProblemRecord{Sequence: pr.Sequence, Counts: pr.Counts})
	if err != nil || created || again.ID != rec.ID {
		t.Fatalf("dedup: created=%v id=%s want %s err=%v", created, again.ID, rec.ID, err)
	}
	run, err := p.CreateRun(t.Context(), model.RunRecord{ProblemID: rec.ID, Sampler: "local", Mode: 1})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	now := time.Now().UTC()
	run.Status, run.FinishedAt = model.RunCompleted, &now
	run.Report = &paintshop.Report{NumCars: 12, Message: paintshop.NoFeasibleMessage}
	if err := p.UpdateRun(t.Context(), run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	got, err := p.GetRun(t.Context(), run.ID)
	if err != nil || got.Report == nil || got.Report.NumCars != 12 {
		t.Fatalf("GetRun: %+v %v", got, err)
	}
	if _, _, err := p.ListRuns(t.Context(), rec.ID, "", 1); err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
}
