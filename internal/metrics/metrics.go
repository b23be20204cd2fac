package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRequests counts calls to the hosted solver by operation and outcome
	SolverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_requests_total", Help: "Hosted solver requests by operation and status."},
		[]string{"op", "status"},
	)
	// SolverDuration tracks solver call latency in seconds
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_request_duration_seconds", Help: "Hosted solver request duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300}},
		[]string{"op"},
	)
	// Runs counts completed optimisation runs by sampler and outcome
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paintshop_runs_total", Help: "Optimisation runs by sampler and outcome."},
		[]string{"sampler", "outcome"},
	)
	// BestSwitches records the switch count of the best feasible solution per run
	BestSwitches = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "paintshop_best_switches", Help: "Colour switches in the best feasible solution.", Buckets: prometheus.ExponentialBuckets(1, 2, 12)},
	)
)

// RegisterDefault registers collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolverRequests)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(Runs)
		Registry.MustRegister(BestSwitches)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
