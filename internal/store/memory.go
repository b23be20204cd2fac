package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"paintshop/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	problems map[string]model.ProblemRecord // id -> problem
	order    []string                       // problem ids in insertion order
	byKey    map[string]string              // dedup key -> problem id
	runs     map[string]model.RunRecord     // id -> run
	runOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		problems: map[string]model.ProblemRecord{},
		byKey:    map[string]string{},
		runs:     map[string]model.RunRecord{},
	}
}

func (m *Memory) SaveProblem(ctx context.Context, rec model.ProblemRecord) (model.ProblemRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := computeProblemKey(rec.Problem())
	if id, ok := m.byKey[key]; ok {
		return cloneProblem(m.problems[id]), false, nil
	}
	rec = cloneProblem(rec)
	rec.ID = uuid.New().String()
	rec.DedupKey = key
	rec.NumCars = len(rec.Sequence)
	rec.NumEnsembles = len(rec.Counts)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.problems[rec.ID] = rec
	m.byKey[key] = rec.ID
	m.order = append(m.order, rec.ID)
	return cloneProblem(rec), true, nil
}

func (m *Memory) GetProblem(ctx context.Context, id string) (model.ProblemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.problems[id]
	if !ok {
		return model.ProblemRecord{}, ErrNotFound
	}
	return cloneProblem(p), nil
}

func (m *Memory) ListProblems(ctx context.Context, cursor string, limit int) ([]model.ProblemRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := page(m.order, cursor, clampLimit(limit))
	out := make([]model.ProblemRecord, 0, len(ids.items))
	for _, id := range ids.items {
		out = append(out, cloneProblem(m.problems[id]))
	}
	return out, ids.next, nil
}

func (m *Memory) CreateRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.problems[rec.ProblemID]; !ok {
		return model.RunRecord{}, ErrNotFound
	}
	rec.ID = uuid.New().String()
	if rec.Status == "" {
		rec.Status = model.RunRunning
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.runs[rec.ID] = rec
	m.runOrder = append(m.runOrder, rec.ID)
	return rec, nil
}

func (m *Memory) UpdateRun(ctx context.Context, rec model.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[rec.ID]; !ok {
		return ErrNotFound
	}
	m.runs[rec.ID] = rec
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.RunRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, problemID, cursor string, limit int) ([]model.RunRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.runOrder
	if problemID != "" {
		ids = nil
		for _, id := range m.runOrder {
			if m.runs[id].ProblemID == problemID {
				ids = append(ids, id)
			}
		}
	}
	pg := page(ids, cursor, clampLimit(limit))
	out := make([]model.RunRecord, 0, len(pg.items))
	for _, id := range pg.items {
		out = append(out, m.runs[id])
	}
	return out, pg.next, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// cloneProblem copies the sequence and demand so callers never share them
// with the store.
func cloneProblem(p model.ProblemRecord) model.ProblemRecord {
	p.Sequence = slices.Clone(p.Sequence)
	p.Counts = maps.Clone(p.Counts)
	if p.Seed != nil {
		seed := *p.Seed
		p.Seed = &seed
	}
	return p
}

type idPage struct {
	items []string
	next  string
}

// page returns up to limit ids following cursor; next is the last id
// returned when more remain.
func page(ids []string, cursor string, limit int) idPage {
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	if start > end {
		start = end
	}
	p := idPage{items: append([]string(nil), ids[start:end]...)}
	if end < len(ids) && end > start {
		p.next = ids[end-1]
	}
	return p
}
