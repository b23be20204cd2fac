package api

import (
	"fmt"
	"math"

	"paintshop/internal/model"
)

const maxTop = 100

func validateCreateProblem(req *model.CreateProblemRequest) error {
	if !req.Generated() {
		if req.NumCars != 0 || req.NumEnsembles != 0 || req.Seed != nil || req.MinBlack != 0 || req.MaxBlack != 0 {
			return fmt.Errorf("give either sequence/counts or generator options, not both")
		}
		if req.Counts == nil {
			return fmt.Errorf("counts required with sequence")
		}
		return nil
	}
	if len(req.Counts) > 0 {
		return fmt.Errorf("counts given without sequence")
	}
	if req.NumCars < 0 || req.NumEnsembles < 0 {
		return fmt.Errorf("numCars and numEnsembles must be >= 0")
	}
	if req.MinBlack < 0 || req.MaxBlack < 0 {
		return fmt.Errorf("minBlack and maxBlack must be >= 0")
	}
	return nil
}

func validateRunRequest(req *model.RunRequest) error {
	if req.ProblemID == "" {
		return fmt.Errorf("problemId required")
	}
	if req.Mode < 0 {
		return fmt.Errorf("mode must be >= 0")
	}
	if req.TimeLimitSec < 0 || math.IsNaN(req.TimeLimitSec) || math.IsInf(req.TimeLimitSec, 0) {
		return fmt.Errorf("timeLimitSec must be a finite number >= 0")
	}
	if req.Top < 0 || req.Top > maxTop {
		return fmt.Errorf("top must be in [0,%d]", maxTop)
	}
	if req.Sampler != "" && req.Sampler != "local" && req.Sampler != "hybrid" {
		return fmt.Errorf("invalid sampler: %s", req.Sampler)
	}
	return nil
}

func validateRelaxRequest(req *model.RelaxRequest, numCars int) error {
	if req.Mode < 0 {
		return fmt.Errorf("mode must be >= 0")
	}
	for i, s := range req.Samples {
		if len(s) != numCars {
			return fmt.Errorf("samples[%d]: want %d values, got %d", i, numCars, len(s))
		}
		for _, v := range s {
			if v != 0 && v != 1 {
				return fmt.Errorf("samples[%d]: values must be 0 or 1", i)
			}
		}
	}
	return nil
}
