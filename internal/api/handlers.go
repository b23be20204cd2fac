package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paintshop/internal/logger"
	"paintshop/internal/metrics"
	"paintshop/internal/model"
	"paintshop/internal/paintshop"
	"paintshop/internal/solver"
)

// ProblemsHandler handles POST/GET /v1/problems
func (s *Server) ProblemsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.CreateProblemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateCreateProblem(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid problem request", err.Error(), r.URL.Path)
			return
		}
		rec, err := buildProblem(req)
		if err != nil {
			writeError(w, r, "Invalid problem", err)
			return
		}
		out, created, err := s.Store.SaveProblem(r.Context(), rec)
		if err != nil {
			writeError(w, r, "Save problem failed", err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, out)
	case http.MethodGet:
		cursor, limit := pageParams(r)
		items, next, err := s.Store.ListProblems(r.Context(), cursor, limit)
		if err != nil {
			writeError(w, r, "List problems failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// buildProblem turns a request into a validated record, generating the
// sequence when none is given.
func buildProblem(req model.CreateProblemRequest) (model.ProblemRecord, error) {
	if !req.Generated() {
		p := paintshop.Problem{Sequence: req.Sequence, Counts: req.Counts}
		if err := p.Validate(); err != nil {
			return model.ProblemRecord{}, err
		}
		return model.ProblemRecord{Name: req.Name, Sequence: p.Sequence, Counts: p.Counts}, nil
	}
	opts := paintshop.DefaultGenerateOptions()
	if req.NumCars > 0 {
		opts.NumCars = req.NumCars
	}
	if req.NumEnsembles > 0 {
		opts.NumEnsembles = req.NumEnsembles
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	opts.MinBlack, opts.MaxBlack = req.MinBlack, req.MaxBlack
	p, err := paintshop.Generate(opts)
	if err != nil {
		return model.ProblemRecord{}, err
	}
	if err := p.Validate(); err != nil {
		return model.ProblemRecord{}, err
	}
	seed := opts.Seed
	return model.ProblemRecord{Name: req.Name, Sequence: p.Sequence, Counts: p.Counts, Seed: &seed}, nil
}

// ProblemByIDHandler handles GET /v1/problems/{id}, GET /v1/problems/{id}/yaml,
// POST /v1/problems/{id}/model and POST /v1/problems/{id}/relax
func (s *Server) ProblemByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/problems/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	parts := strings.Split(rest, "/")
	if len(parts) > 2 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	want := http.MethodGet
	if action == "model" || action == "relax" {
		want = http.MethodPost
	}
	if r.Method != want {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if action != "" && action != "yaml" && action != "model" && action != "relax" {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown action "+action, path)
		return
	}
	rec, err := s.Store.GetProblem(r.Context(), parts[0])
	if err != nil {
		writeError(w, r, "Problem not found", err)
		return
	}
	switch action {
	case "":
		writeJSON(w, http.StatusOK, rec)
	case "yaml":
		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sequence_"+rec.ID+".yml"))
		if err := paintshop.WriteProblem(w, rec.Problem()); err != nil {
			logger.Errorf("write yaml %s: %v", rec.ID, err)
		}
	case "model":
		s.modelHandler(w, r, rec)
	case "relax":
		s.relaxHandler(w, r, rec)
	}
}

func (s *Server) modelHandler(w http.ResponseWriter, r *http.Request, rec model.ProblemRecord) {
	var req model.ModelRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.Mode < 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid model request", "mode must be >= 0", r.URL.Path)
		return
	}
	m, err := paintshop.BuildModel(rec.Sequence, rec.Counts, modeOf(req.Mode))
	if err != nil {
		writeError(w, r, "Build model failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"problemId": rec.ID,
		"summary":   m.Summary(),
		"cqm":       m.CQM,
	})
}

func (s *Server) relaxHandler(w http.ResponseWriter, r *http.Request, rec model.ProblemRecord) {
	var req model.RelaxRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateRelaxRequest(&req, len(rec.Sequence)); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid relax request", err.Error(), r.URL.Path)
		return
	}
	m, err := paintshop.BuildModel(rec.Sequence, rec.Counts, modeOf(req.Mode))
	if err != nil {
		writeError(w, r, "Build model failed", err)
		return
	}
	bqm, err := m.Relax(req.Penalty)
	if err != nil {
		writeError(w, r, "Relax failed", err)
		return
	}
	energies := make([]model.SampleEnergy, 0, len(req.Samples))
	for _, values := range req.Samples {
		a := paintshop.Positional(values)
		sample := a.Sample()
		energies = append(energies, model.SampleEnergy{
			Sample:    values,
			Energy:    bqm.Energy(sample),
			Objective: m.CQM.ObjectiveEnergy(sample),
			Switches:  a.Switches(),
			Feasible:  m.CQM.CheckFeasible(sample),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"problemId":       rec.ID,
		"summary":         m.Summary(),
		"penalty":         req.Penalty,
		"numVariables":    bqm.NumVariables(),
		"numInteractions": bqm.NumInteractions(),
		"bqm":             bqm,
		"energies":        energies,
	})
}

// RunsHandler handles POST/GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createRun(w, r)
	case http.MethodGet:
		cursor, limit := pageParams(r)
		items, next, err := s.Store.ListRuns(r.Context(), r.URL.Query().Get("problemId"), cursor, limit)
		if err != nil {
			writeError(w, r, "List runs failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req model.RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateRunRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid run request", err.Error(), r.URL.Path)
		return
	}
	prob, err := s.Store.GetProblem(r.Context(), req.ProblemID)
	if err != nil {
		writeError(w, r, "Problem not found", err)
		return
	}
	kind := req.Sampler
	if kind == "" {
		kind = s.DefaultSampler
	}
	sampler, err := s.newSampler(kind, s.Solver)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Sampler unavailable", err.Error(), r.URL.Path)
		return
	}
	mode := modeOf(req.Mode)
	run, err := s.Store.CreateRun(r.Context(), model.RunRecord{ProblemID: prob.ID, Sampler: kind, Mode: int(mode)})
	if err != nil {
		writeError(w, r, "Create run failed", err)
		return
	}
	s.publish(run.ID, "run.started", map[string]any{"problemId": prob.ID, "sampler": kind, "mode": mode.String()})
	opts := paintshop.RunOptions{
		Mode:      mode,
		TimeLimit: time.Duration(req.TimeLimitSec * float64(time.Second)),
		Top:       req.Top,
	}
	if req.Async {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
			defer cancel()
			_, _ = s.execute(ctx, run, prob.Problem(), sampler, opts)
		}()
		writeJSON(w, http.StatusAccepted, run)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()
	run, err = s.execute(ctx, run, prob.Problem(), sampler, opts)
	if err != nil {
		writeError(w, r, "Run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// execute runs the problem, stores the outcome and publishes it.
func (s *Server) execute(ctx context.Context, run model.RunRecord, p paintshop.Problem, sampler solver.Sampler, opts paintshop.RunOptions) (model.RunRecord, error) {
	rep, err := paintshop.Run(ctx, sampler, p, opts)
	now := time.Now().UTC()
	run.FinishedAt = &now
	outcome := "feasible"
	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
		outcome = "error"
	} else {
		run.Status = model.RunCompleted
		run.Report = &rep
		if best, ok := rep.Best(); ok {
			metrics.BestSwitches.Observe(best.Switches)
		} else {
			outcome = "infeasible"
		}
	}
	metrics.Runs.WithLabelValues(run.Sampler, outcome).Inc()

	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if uerr := s.Store.UpdateRun(uctx, run); uerr != nil {
		logger.Errorf("update run %s: %v", run.ID, uerr)
	}
	if err != nil {
		logger.L().Warn().Str("run", run.ID).Str("sampler", run.Sampler).Err(err).Msg("run failed")
		failed := map[string]any{"status": run.Status, "error": run.Error}
		s.publish(run.ID, "run.failed", failed)
		s.Pub.Emit("run.failed", run.ID, failed)
		return run, err
	}
	for _, msg := range rep.Warnings {
		s.publish(run.ID, "run.warning", map[string]any{"message": msg})
	}
	data := map[string]any{
		"status":     run.Status,
		"candidates": rep.Candidates,
		"feasible":   rep.FeasibleCount,
	}
	if best, ok := rep.Best(); ok {
		data["bestObjective"] = best.Objective
		data["bestSwitches"] = best.Switches
		data["colors"] = best.Colors
	} else {
		data["message"] = rep.Message
	}
	logger.L().Info().Str("run", run.ID).Str("sampler", run.Sampler).Int("feasible", rep.FeasibleCount).Msg("run completed")
	s.publish(run.ID, "run.completed", data)
	s.Pub.Emit("run.completed", run.ID, data)
	return run, nil
}

// RunByIDHandler handles GET /v1/runs/{id} and GET /v1/runs/{id}/events/stream
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/runs/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(parts) == 3 && parts[1] == "events" && parts[2] == "stream" {
		s.streamRunEvents(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
		return
	}
	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, "Run not found", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// streamRunEvents sends the run's current status, then its events as SSE
// until a terminal event, the client leaving, or shutdown.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	// subscribe before reading the status so no terminal event is missed
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, "Run not found", err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	writeSSE(w, statusEvent(run))
	flusher.Flush()
	if terminalStatus(run.Status) {
		return
	}
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.baseCtx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt)
			flusher.Flush()
			if terminalEvent(evt.Type) {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"runId\":%q,\"ts\":%q}\n\n", id, time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, evt model.RunEvent) {
	b, _ := json.Marshal(evt)
	fmt.Fprintf(w, "event: %s\n", evt.Type)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

func statusEvent(run model.RunRecord) model.RunEvent {
	data := map[string]any{"status": run.Status}
	if run.Error != "" {
		data["error"] = run.Error
	}
	return model.RunEvent{Type: "run.status", RunID: run.ID, Data: data, At: time.Now().UTC()}
}

func terminalStatus(status string) bool {
	return status == model.RunCompleted || status == model.RunFailed
}

func terminalEvent(typ string) bool { return typ == "run.completed" || typ == "run.failed" }

func (s *Server) publish(runID, typ string, data map[string]any) {
	s.Broker.Publish(runID, model.RunEvent{Type: typ, RunID: runID, Data: data, At: time.Now().UTC()})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func modeOf(v int) paintshop.Mode {
	if v == 0 {
		return paintshop.ModeSwitches
	}
	return paintshop.Mode(v)
}

func pageParams(r *http.Request) (cursor string, limit int) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return q.Get("cursor"), limit
}
