package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"paintshop/internal/model"
	"paintshop/internal/paintshop"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Problems. SaveProblem deduplicates on sequence and demand; created is
	// false when an identical problem already existed and was returned.
	SaveProblem(ctx context.Context, rec model.ProblemRecord) (out model.ProblemRecord, created bool, err error)
	GetProblem(ctx context.Context, id string) (model.ProblemRecord, error)
	ListProblems(ctx context.Context, cursor string, limit int) ([]model.ProblemRecord, string, error)

	// Runs
	CreateRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error)
	UpdateRun(ctx context.Context, rec model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, error)
	ListRuns(ctx context.Context, problemID, cursor string, limit int) ([]model.RunRecord, string, error)

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

// computeProblemKey hashes the canonical JSON of a problem (map keys are
// sorted by encoding/json) and keeps the first 8 bytes as hex.
func computeProblemKey(p paintshop.Problem) string {
	if p.Counts == nil {
		p.Counts = paintshop.Demand{}
	}
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
