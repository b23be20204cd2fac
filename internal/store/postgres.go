package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"paintshop/internal/model"
	"paintshop/internal/paintshop"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every *.sql file of dir in name order, skipping files
// already recorded in schema_migrations.
func (p *Postgres) MigrateDir(dir string) error {
	ctx := context.Background()
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (name text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())`); err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		name := filepath.Base(f)
		var seen string
		err := p.db.QueryRowContext(ctx, `SELECT name FROM schema_migrations WHERE name=$1`, name).Scan(&seen)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SaveProblem inserts the problem unless one with the same dedup key exists.
func (p *Postgres) SaveProblem(ctx context.Context, rec model.ProblemRecord) (model.ProblemRecord, bool, error) {
	rec.DedupKey = computeProblemKey(rec.Problem())
	existing, err := p.getProblemBy(ctx, `dedup_key=$1`, rec.DedupKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.ProblemRecord{}, false, err
	}
	seq, err := json.Marshal(rec.Sequence)
	if err != nil {
		return model.ProblemRecord{}, false, err
	}
	counts, err := json.Marshal(nonNilDemand(rec.Counts))
	if err != nil {
		return model.ProblemRecord{}, false, err
	}
	rec.ID = uuid.New().String()
	rec.NumCars = len(rec.Sequence)
	rec.NumEnsembles = len(rec.Counts)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := p.db.ExecContext(ctx, `INSERT INTO problems (id, name, sequence, counts, num_cars, num_ensembles, seed, dedup_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (dedup_key) DO NOTHING`,
		rec.ID, nullIfEmpty(rec.Name), string(seq), string(counts), rec.NumCars, rec.NumEnsembles, nullInt64(rec.Seed), rec.DedupKey, rec.CreatedAt)
	if err != nil {
		return model.ProblemRecord{}, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost a race with an identical insert
		existing, err := p.getProblemBy(ctx, `dedup_key=$1`, rec.DedupKey)
		return existing, false, err
	}
	return rec, true, nil
}

func (p *Postgres) GetProblem(ctx context.Context, id string) (model.ProblemRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.ProblemRecord{}, ErrNotFound
	}
	return p.getProblemBy(ctx, `id=$1`, id)
}

const problemCols = `id::text, name, sequence, counts, num_cars, num_ensembles, seed, dedup_key, created_at`

func (p *Postgres) getProblemBy(ctx context.Context, where string, arg any) (model.ProblemRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+problemCols+` FROM problems WHERE `+where, arg)
	rec, err := scanProblem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProblemRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListProblems(ctx context.Context, cursor string, limit int) ([]model.ProblemRecord, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT `+problemCols+` FROM problems WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT `+problemCols+` FROM problems ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.ProblemRecord{}
	for rows.Next() {
		rec, err := scanProblem(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) CreateRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	if _, err := p.GetProblem(ctx, rec.ProblemID); err != nil {
		return model.RunRecord{}, err
	}
	rec.ID = uuid.New().String()
	if rec.Status == "" {
		rec.Status = model.RunRunning
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	report, err := reportJSON(rec.Report)
	if err != nil {
		return model.RunRecord{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, problem_id, sampler, mode, status, error, report, created_at, finished_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.ProblemID, rec.Sampler, rec.Mode, rec.Status, nullIfEmpty(rec.Error), report, rec.CreatedAt, rec.FinishedAt)
	if err != nil {
		return model.RunRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, rec model.RunRecord) error {
	report, err := reportJSON(rec.Report)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$2, error=$3, report=$4, finished_at=$5 WHERE id=$1`,
		rec.ID, rec.Status, nullIfEmpty(rec.Error), report, rec.FinishedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const runCols = `id::text, problem_id::text, sampler, mode, status, error, report, created_at, finished_at`

func (p *Postgres) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.RunRecord{}, ErrNotFound
	}
	rec, err := scanRun(p.db.QueryRowContext(ctx, `SELECT `+runCols+` FROM runs WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListRuns(ctx context.Context, problemID, cursor string, limit int) ([]model.RunRecord, string, error) {
	limit = clampLimit(limit)
	conds := []string{}
	args := []any{}
	if problemID != "" {
		if _, err := uuid.Parse(problemID); err != nil {
			return []model.RunRecord{}, "", nil
		}
		args = append(args, problemID)
		conds = append(conds, fmt.Sprintf("problem_id=$%d", len(args)))
	}
	if cursor != "" {
		args = append(args, cursor)
		conds = append(conds, fmt.Sprintf("id::text > $%d", len(args)))
	}
	q := `SELECT ` + runCols + ` FROM runs`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProblem(row scanner) (model.ProblemRecord, error) {
	var rec model.ProblemRecord
	var name sql.NullString
	var seed sql.NullInt64
	var seq, counts []byte
	if err := row.Scan(&rec.ID, &name, &seq, &counts, &rec.NumCars, &rec.NumEnsembles, &seed, &rec.DedupKey, &rec.CreatedAt); err != nil {
		return model.ProblemRecord{}, err
	}
	rec.Name = name.String
	if seed.Valid {
		v := seed.Int64
		rec.Seed = &v
	}
	if err := json.Unmarshal(seq, &rec.Sequence); err != nil {
		return model.ProblemRecord{}, fmt.Errorf("problem %s sequence: %w", rec.ID, err)
	}
	if err := json.Unmarshal(counts, &rec.Counts); err != nil {
		return model.ProblemRecord{}, fmt.Errorf("problem %s counts: %w", rec.ID, err)
	}
	rec.Counts = nonNilDemand(rec.Counts)
	return rec, nil
}

func scanRun(row scanner) (model.RunRecord, error) {
	var rec model.RunRecord
	var errText sql.NullString
	var report []byte
	var finished sql.NullTime
	if err := row.Scan(&rec.ID, &rec.ProblemID, &rec.Sampler, &rec.Mode, &rec.Status, &errText, &report, &rec.CreatedAt, &finished); err != nil {
		return model.RunRecord{}, err
	}
	rec.Error = errText.String
	if finished.Valid {
		t := finished.Time
		rec.FinishedAt = &t
	}
	if len(report) > 0 {
		var rep paintshop.Report
		if err := json.Unmarshal(report, &rep); err != nil {
			return model.RunRecord{}, fmt.Errorf("run %s report: %w", rec.ID, err)
		}
		rec.Report = &rep
	}
	return rec, nil
}

func reportJSON(r *paintshop.Report) (any, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nonNilDemand(d paintshop.Demand) paintshop.Demand {
	if d == nil {
		return paintshop.Demand{}
	}
	return d
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
