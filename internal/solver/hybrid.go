package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"paintshop/internal/metrics"
	"paintshop/internal/qm"
)

// Properties are the limits the hosted solver publishes.
type Properties struct {
	MinimumTimeLimit     float64 `json:"minimum_time_limit_s"`
	TimeLimitPerVariable float64 `json:"time_limit_per_variable_s"`
	MaximumVariables     int     `json:"maximum_number_of_variables,omitempty"`
}

// Hybrid submits models to a hosted hybrid CQM solver over HTTP.
//
// The wire format is this service's own adapter protocol, not a vendor API:
// GET {endpoint}/solvers/{profile} for Properties, POST
// {endpoint}/solvers/{profile}/problems with {"model", "timeLimit", "label"} for
// samples, and the token in X-Auth-Token. Fronting a real solver needs a
// gateway that speaks this protocol.
type Hybrid struct {
	cfg     Config
	HTTP    *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	props *Properties
}

func NewHybrid(cfg Config) (*Hybrid, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("hybrid sampler: endpoint is required (SOLVER_ENDPOINT)")
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultConfig().Profile
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Hybrid{cfg: cfg, HTTP: &http.Client{}, limiter: lim}, nil
}

// Properties fetches and caches the solver's published limits.
func (h *Hybrid) Properties(ctx context.Context) (Properties, error) {
	h.mu.Lock()
	if h.props != nil {
		p := *h.props
		h.mu.Unlock()
		return p, nil
	}
	h.mu.Unlock()

	var p Properties
	if err := h.do(ctx, "properties", http.MethodGet, h.solverURL(), nil, h.cfg.RequestTimeout, &p); err != nil {
		return Properties{}, err
	}
	h.mu.Lock()
	h.props = &p
	h.mu.Unlock()
	return p, nil
}

// MinTimeLimit is max(minimum_time_limit_s, time_limit_per_variable_s * numVariables).
func (h *Hybrid) MinTimeLimit(ctx context.Context, m *qm.CQM) (time.Duration, error) {
	p, err := h.Properties(ctx)
	if err != nil {
		return 0, err
	}
	secs := math.Max(p.MinimumTimeLimit, p.TimeLimitPerVariable*float64(len(m.Variables())))
	return Seconds(secs), nil
}

type submitRequest struct {
	Model     *qm.CQM `json:"model"`
	TimeLimit float64 `json:"timeLimit,omitempty"`
	Label     string  `json:"label,omitempty"`
}

// SampleCQM submits m and waits for the answer. Samples come back annotated
// with energy and feasibility as computed by the service.
func (h *Hybrid) SampleCQM(ctx context.Context, m *qm.CQM, timeLimit time.Duration) (SampleSet, error) {
	if timeLimit <= 0 {
		timeLimit = h.cfg.TimeLimit
	}
	body, err := json.Marshal(submitRequest{Model: m, TimeLimit: timeLimit.Seconds(), Label: "paintshop"})
	if err != nil {
		return SampleSet{}, err
	}
	var ss SampleSet
	if err := h.do(ctx, "sample", http.MethodPost, h.solverURL()+"/problems", body, timeLimit+h.cfg.RequestTimeout, &ss); err != nil {
		return SampleSet{}, err
	}
	for i := range ss.Records {
		if ss.Records[i].NumOccurrences <= 0 {
			ss.Records[i].NumOccurrences = 1
		}
	}
	return ss, nil
}

func (h *Hybrid) solverURL() string { return h.cfg.Endpoint + "/solvers/" + h.cfg.Profile }

func (h *Hybrid) do(ctx context.Context, op, method, url string, body []byte, timeout time.Duration, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.cfg.Token != "" {
		req.Header.Set("X-Auth-Token", h.cfg.Token)
	}

	start := time.Now()
	resp, err := h.HTTP.Do(req)
	metrics.SolverDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SolverRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: %s: %v", ErrSolver, op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.SolverRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrSolver, op, err)
	}
	return nil
}
