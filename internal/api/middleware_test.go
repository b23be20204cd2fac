package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"paintshop/internal/metrics"
)

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/problems":                       "/v1/problems",
		"/v1/problems/abc":                   "/v1/problems/{id}",
		"/v1/problems/abc/relax":             "/v1/problems/{id}/relax",
		"/v1/runs/0f1e/events/stream":        "/v1/runs/{id}/events/stream",
		"/healthz":                           "/healthz",
		"/v1/ws":                             "/v1/ws",
		"/other/thing/with/many/parts":       "/other/thing/with/many/parts",
		"/v1/problems/abc/yaml/":             "/v1/problems/{id}/yaml",
		"/v1/runs/7d3c2b10-aaaa-bbbb-cccc-1": "/v1/runs/{id}",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstrumentKeepsFlusher(t *testing.T) {
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/v1/runs/{id}", "418"))
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Errorf("wrapped writer lost http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/123", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status %d", rr.Code)
	}
	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/v1/runs/{id}", "418"))
	if after != before+1 {
		t.Fatalf("counter: before %v after %v", before, after)
	}
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RateLimit(rate.NewLimiter(rate.Limit(0.001), 1), ok)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/problems", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first request: %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/problems", nil))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second request: %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("health must bypass the limiter: %d", rr.Code)
	}
}

func TestLimiterFromEnv(t *testing.T) {
	t.Setenv("RATE_RPS", "")
	if LimiterFromEnv() != nil {
		t.Fatal("expected no limiter when RATE_RPS is unset")
	}
	t.Setenv("RATE_RPS", "5")
	t.Setenv("RATE_BURST", "")
	l := LimiterFromEnv()
	if l == nil || l.Burst() != 5 || l.Limit() != 5 {
		t.Fatalf("limiter: %+v", l)
	}
	t.Setenv("RATE_BURST", "9")
	if l := LimiterFromEnv(); l.Burst() != 9 {
		t.Fatalf("burst: %d", l.Burst())
	}
}
