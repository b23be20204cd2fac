package api

import (
	"net/http"
	"os"
	"time"

	"paintshop/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             os.Getenv("PORT"),
			"LOG_LEVEL":        os.Getenv("LOG_LEVEL"),
			"RATE_RPS":         os.Getenv("RATE_RPS"),
			"RATE_BURST":       os.Getenv("RATE_BURST"),
			"SOLVER_PROFILE":   s.Solver.Profile,
			"SOLVER_RPS":       s.Solver.RPS,
			"DEFAULT_SAMPLER":  s.DefaultSampler,
			"HAS_SOLVER_TOKEN": s.Solver.Token != "",
			"HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":    os.Getenv("REDIS_URL") != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
