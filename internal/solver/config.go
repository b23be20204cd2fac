package solver

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every option the samplers recognise.
type Config struct {
	// Hosted hybrid service
	Endpoint       string        // base URL, e.g. https://solver.example.com/v1
	Token          string        // sent as X-Auth-Token
	Profile        string        // solver name on the service
	TimeLimit      time.Duration // default time limit when a call passes zero
	RequestTimeout time.Duration // HTTP timeout on top of the time limit
	RPS            float64       // request rate limit; <= 0 disables
	Burst          int

	// Local annealer
	Penalty float64 // <= 0 derives a penalty from the model
	Reads   int
	Seed    int64
}

// DefaultConfig returns defaults for every option.
func DefaultConfig() Config {
	return Config{
		Profile:        "hybrid_constrained_quadratic_model",
		RequestTimeout: 60 * time.Second,
		RPS:            1,
		Burst:          2,
		Reads:          20,
	}
}

// ConfigFromEnv overlays SOLVER_* environment variables on DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv("SOLVER_ENDPOINT"); v != "" {
		cfg.Endpoint = strings.TrimRight(v, "/")
	}
	cfg.Token = os.Getenv("SOLVER_TOKEN")
	if v := os.Getenv("SOLVER_PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv("SOLVER_TIME_LIMIT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return cfg, fmt.Errorf("SOLVER_TIME_LIMIT: %w", err)
		}
		cfg.TimeLimit = d
	}
	if v := os.Getenv("SOLVER_TIMEOUT"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return cfg, fmt.Errorf("SOLVER_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("SOLVER_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("SOLVER_RPS: %w", err)
		}
		cfg.RPS = f
	}
	if v := os.Getenv("SOLVER_PENALTY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("SOLVER_PENALTY: %w", err)
		}
		cfg.Penalty = f
	}
	return cfg, nil
}

// parseSeconds accepts a Go duration ("90s") or a number of seconds ("7.5").
func parseSeconds(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return Seconds(f), nil
}

// Seconds converts fractional seconds to a Duration.
func Seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }
